// Package query evaluates expr-lang expressions against device info returned
// by the Instance ID service.
//
// Top-level info fields are variables (application, platform, rel, ...) and
// nested objects are reached with member access, e.g. rel.topics.news.addDate.
// A few helpers are available as well:
//
//	topics()          sorted names of subscribed topics
//	topicCount()      number of subscribed topics
//	subscribed(name)  whether the device is subscribed to name
//	lower(s), upper(s), hasText(s, sub)
package query

import (
	"maps"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/milare/google-instance-id/instanceid"
)

// DefaultCacheSize is the number of compiled queries kept by the default compiler
const DefaultCacheSize = 64

var defaultCompiler = NewCompiler(WithCache(DefaultCacheSize))

// Query is a compiled expression, safe for concurrent use
type Query struct {
	expression string
	program    *vm.Program
}

// CompilerOption configures a Compiler
type CompilerOption func(*Compiler)

// WithCache enables caching of compiled queries
func WithCache(size int) CompilerOption {
	return func(c *Compiler) {
		if size > 0 {
			c.cache = newLRUCache(size)
		}
	}
}

// Compiler compiles query expressions
type Compiler struct {
	cache *lruCache
}

// NewCompiler creates a new compiler
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles an expression using the default compiler
func Compile(expression string) (*Query, error) {
	return defaultCompiler.Compile(expression)
}

// Compile compiles an expression into a Query
func (c *Compiler) Compile(expression string) (*Query, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if q, ok := c.cache.get(expression); ok {
			return q, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(helperFunctions(instanceid.NewDeviceInfo(nil))),
		expr.AllowUndefinedVariables(), // info fields are only known at runtime
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	q := &Query{expression: expression, program: program}
	if c.cache != nil {
		c.cache.put(expression, q)
	}
	return q, nil
}

// Expression returns the original expression
func (q *Query) Expression() string {
	return q.expression
}

// Run evaluates the query against info and returns its result
func (q *Query) Run(info *instanceid.DeviceInfo) (any, error) {
	if info == nil {
		return nil, ErrNoInfo
	}

	env := make(map[string]any, len(info.Raw())+8)
	maps.Copy(env, info.Raw())
	maps.Copy(env, helperFunctions(info))

	result, err := expr.Run(q.program, env)
	if err != nil {
		return nil, &EvaluationError{Expression: q.expression, Err: err}
	}
	return result, nil
}

// Match evaluates the query and reports whether it produced true.
// Non-boolean results never match.
func (q *Query) Match(info *instanceid.DeviceInfo) (bool, error) {
	result, err := q.Run(info)
	if err != nil {
		return false, err
	}
	ok, _ := result.(bool)
	return ok, nil
}

// helperFunctions returns the helpers bound to info
func helperFunctions(info *instanceid.DeviceInfo) map[string]any {
	return map[string]any{
		"topics":     info.TopicNames,
		"topicCount": func() int { return info.Len("rel", "topics") },
		"subscribed": info.IsSubscribed,
		"lower":      strings.ToLower,
		"upper":      strings.ToUpper,
		"hasText": func(str, substr string) bool {
			return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
		},
	}
}
