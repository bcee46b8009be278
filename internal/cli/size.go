package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// sizeValue is a byte count flag with a unit suffix: "k" for 1024 bytes,
// "b" for bytes. A bare number is bytes.
type sizeValue struct {
	raw   string
	bytes int
}

var _ pflag.Value = (*sizeValue)(nil)

func newSizeValue(def string) *sizeValue {
	v := &sizeValue{}
	if err := v.Set(def); err != nil {
		panic(err)
	}
	return v
}

func (v *sizeValue) String() string { return v.raw }

func (v *sizeValue) Type() string { return "size" }

// Set implements pflag.Value.
func (v *sizeValue) Set(s string) error {
	n, err := parseSize(s)
	if err != nil {
		return err
	}
	v.raw, v.bytes = s, n
	return nil
}

// Bytes returns the parsed size.
func (v *sizeValue) Bytes() int { return v.bytes }

func parseSize(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	mult := 1
	switch {
	case strings.HasSuffix(s, "k"):
		mult = 1024
		s = strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "b"):
		s = strings.TrimSuffix(s, "b")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: expected <n>k or <n>b", s)
	}
	if n < 1 {
		return 0, fmt.Errorf("size must be at least 1 byte, got %d", n)
	}
	if n > math.MaxInt/mult {
		return 0, fmt.Errorf("size %s is too large", s)
	}
	return n * mult, nil
}
