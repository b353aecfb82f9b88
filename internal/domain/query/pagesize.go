package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/entrysearch/internal/domain"
)

// PageSize is a page size that decodes from either an integer or a numeric string.
type PageSize int

// ParsePageSize parses a positive page size from a string.
func ParsePageSize(s string) (PageSize, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidPageSize, s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %d", domain.ErrInvalidPageSize, n)
	}
	return PageSize(n), nil
}

// Int returns the page size as int.
func (p PageSize) Int() int { return int(p) }

// UnmarshalJSON accepts 20 or "20".
func (p *PageSize) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if n <= 0 {
			return fmt.Errorf("%w: %d", domain.ErrInvalidPageSize, n)
		}
		*p = PageSize(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidPageSize, data)
	}
	v, err := ParsePageSize(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// UnmarshalYAML accepts 20 or "20".
func (p *PageSize) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected scalar", domain.ErrInvalidPageSize, node.Line)
	}
	v, err := ParsePageSize(node.Value)
	if err != nil {
		return err
	}
	*p = v
	return nil
}
