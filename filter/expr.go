package filter

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/remtav/stac-browser/stac"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	custom     map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache(size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
		maps.Copy(c.customFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
		customFuncs: make(map[string]any),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	customFuncs map[string]any
	cache       *lruCache
}

var defaultCompiler = NewExprCompiler(WithCache(100))

// CompileFilter compiles expression with a shared caching compiler
func CompileFilter(expression string) (CompiledFilter, error) {
	return defaultCompiler.Compile(expression)
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	// Item fields are only known at run time
	program, err := expr.Compile(expression,
		expr.Env(c.helperFuncs),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
	}
	if len(c.customFuncs) > 0 {
		filter.custom = c.customFuncs
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate evaluates the filter against an item. Items the expression cannot
// be evaluated on, for instance because a compared property is missing, do
// not match.
func (f *exprFilter) Evaluate(item *stac.Item) bool {
	ok, err := f.Match(item)
	return err == nil && ok
}

// Match evaluates the filter against an item
func (f *exprFilter) Match(item *stac.Item) (bool, error) {
	env := createRuntimeEnvironment(item)
	maps.Copy(env, f.custom)

	result, err := expr.Run(f.program, env)
	if err != nil {
		id := ""
		if item != nil {
			id = item.ID
		}
		return false, &EvaluationError{Expression: f.expression, ItemID: id, Err: err}
	}

	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// createHelperFunctions creates the helper functions known at compile time
func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 32)
	addHelperFunctions(funcs)
	addItemFunctions(funcs, nil)
	return funcs
}

// addHelperFunctions adds the item independent helpers to env
func addHelperFunctions(env map[string]any) {
	// Date helpers
	env["daysSince"] = func(t time.Time) int {
		return int(time.Since(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	env["monthsAgo"] = func(months int) time.Time {
		return time.Now().AddDate(0, -months, 0)
	}
	env["yearsAgo"] = func(years int) time.Time {
		return time.Now().AddDate(-years, 0, 0)
	}
	env["parseDate"] = func(dateStr string) time.Time {
		t, _ := time.Parse("2006-01-02", dateStr)
		return t
	}
	// String helpers, case insensitive. contains, startsWith and endsWith are
	// operators in expr.
	env["containsFold"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["hasPrefix"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["hasSuffix"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
	env["now"] = time.Now
}

// addItemFunctions adds helpers bound to item. A nil item is used at compile
// time, where only the signatures matter.
func addItemFunctions(env map[string]any, item *stac.Item) {
	var properties map[string]any
	var assets map[string]stac.Asset
	if item != nil {
		properties = item.Properties
		assets = item.Assets
	}

	env["prop"] = func(key string) any {
		return properties[key]
	}
	env["hasProp"] = func(key string) bool {
		_, ok := properties[key]
		return ok
	}
	env["hasAsset"] = func(key string) bool {
		_, ok := assets[key]
		return ok
	}
	env["hasRole"] = func(role string) bool {
		for _, asset := range assets {
			if slices.Contains(asset.Roles, role) {
				return true
			}
		}
		return false
	}
	env["intersects"] = func(minX, minY, maxX, maxY float64) bool {
		if item == nil {
			return false
		}
		extent := item.Extent()
		if extent == nil {
			return false
		}
		return extent.MinX() <= maxX && minX <= extent.MaxX() &&
			extent.MinY() <= maxY && minY <= extent.MaxY()
	}
}

// createRuntimeEnvironment creates the runtime environment for filter evaluation
func createRuntimeEnvironment(item *stac.Item) map[string]any {
	env := make(map[string]any, 32)

	addHelperFunctions(env)
	addItemFunctions(env, item)

	if item == nil {
		return env
	}

	env["Item"] = item
	env["ID"] = item.ID
	env["Collection"] = item.Collection
	env["Platform"] = item.Platform()
	env["Properties"] = item.Properties
	env["Assets"] = item.AssetKeys()
	env["BBox"] = item.BBox

	// Missing values stay undefined so comparisons on them fail to evaluate
	// instead of matching a zero value.
	if cc, ok := item.CloudCover(); ok {
		env["CloudCover"] = cc
	}
	if dt, ok := item.Datetime(); ok {
		env["Datetime"] = dt
	}

	return env
}
