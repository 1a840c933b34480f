package exprengine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/c360/alarmstreams/pkg/cache"
)

// regexCache holds compiled patterns so repeated regexp conditions on hot
// row paths do not recompile per row.
var regexCache = cache.NewLRU[*regexp.Regexp](100, nil)

// compileRegex returns a cached compiled pattern, compiling and caching
// on first use. Patterns are complexity-checked before compilation since
// they originate from user-authored alarm conditions.
func compileRegex(pattern string) (*regexp.Regexp, error) {
	if re, found := regexCache.Get(pattern); found {
		return re, nil
	}

	if err := validatePatternComplexity(pattern); err != nil {
		return nil, err
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}

	regexCache.Set(pattern, re)
	return re, nil
}

// validatePatternComplexity rejects patterns likely to be expensive.
// Go's regexp engine is linear-time, but huge repetition counts and deep
// nesting still cost memory and compile time, so cap them.
func validatePatternComplexity(pattern string) error {
	if len(pattern) > 500 {
		return fmt.Errorf("regex pattern too long (max 500 chars): %d chars", len(pattern))
	}

	if strings.Contains(pattern, "{") {
		for i := 1000; i <= 9999; i++ {
			if strings.Contains(pattern, fmt.Sprintf("{%d", i)) {
				return fmt.Errorf("regex pattern contains excessive repetition count (>= 1000)")
			}
		}
	}

	if strings.Count(pattern, "(") > 20 {
		return fmt.Errorf("regex pattern has too many groups (max 20)")
	}

	depth, maxDepth := 0, 0
	for _, ch := range pattern {
		switch ch {
		case '(':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')':
			depth--
		}
	}
	if maxDepth > 5 {
		return fmt.Errorf("regex pattern has excessive nesting depth (max 5 levels)")
	}

	return nil
}
