package orders

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
)

var orderNumberRe = regexp.MustCompile(`^ORD\d{8}\d{4}$`)

// NewOrderNumber returns ORD + UTC date + a random suffix in 1000-9999.
// Numbers are not unique by construction; the orders table enforces uniqueness.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD%s%d", now.UTC().Format("20060102"), 1000+rand.IntN(9000))
}

func ValidOrderNumber(s string) bool { return orderNumberRe.MatchString(s) }

// NormalizeOrderNumber trims and upper-cases a number typed or pasted by a customer.
func NormalizeOrderNumber(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
