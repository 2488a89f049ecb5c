package blueprint

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/tohu/internal/faker"
	"github.com/roach88/tohu/internal/gen"
)

// Types lists the generator types a definition may name. Matching ignores
// case, underscores and dashes.
var Types = []string{
	"constant", "boolean", "integer", "float", "incremental",
	"charstring", "digitstring", "hashdigest", "uuid",
	"timestamp", "date", "timestampbetween", "faker",
	"apply", "lookup", "getattribute",
	"selectone", "selectmultiple", "tee", "fstr",
}

func normalizeType(t string) string {
	t = strings.ToLower(t)
	t = strings.ReplaceAll(t, "_", "")
	return strings.ReplaceAll(t, "-", "")
}

func knownType(t string) bool {
	n := normalizeType(t)
	for _, k := range Types {
		if k == n {
			return true
		}
	}
	return false
}

type namedDef struct {
	name  string
	path  string
	def   *Def
	field bool
}

// Option configures Compile.
type Option func(*compiler)

// WithFuncs makes extra functions available to apply definitions. They
// shadow builtins of the same name.
func WithFuncs(funcs map[string]gen.Func) Option {
	return func(c *compiler) {
		for name, fn := range funcs {
			c.funcs[name] = fn
		}
	}
}

// WithFakerFactory replaces the gofakeit provider of faker definitions.
func WithFakerFactory(f faker.Factory) Option {
	return func(c *compiler) { c.fakerFactory = f }
}

// Compiled is a validated blueprint turned into a custom generator class.
type Compiled struct {
	Blueprint *Blueprint
	Class     *gen.Class
}

// New instantiates the class. Every call returns an independent generator.
func (c *Compiled) New() (*gen.Custom, error) {
	return c.Class.New()
}

// Seed returns the blueprint's default seed, if it sets one.
func (c *Compiled) Seed() (uint64, bool) {
	if c.Blueprint.Seed == nil {
		return 0, false
	}
	return *c.Blueprint.Seed, true
}

type compiler struct {
	bp           *Blueprint
	funcs        map[string]gen.Func
	fakerFactory faker.Factory
	named        []namedDef
	byName       map[string]*namedDef
	built        map[string]gen.Generator
	errs         ValidationErrors
}

func (c *compiler) errorf(code, path, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{Path: path, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Compile validates bp and builds its generator class. All problems found
// are returned together as ValidationErrors.
func Compile(bp *Blueprint, opts ...Option) (*Compiled, error) {
	c := &compiler{
		bp:     bp,
		funcs:  Builtins(),
		byName: make(map[string]*namedDef),
		built:  make(map[string]gen.Generator),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.checkStructure()
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	graph := buildRefGraph(c.named)
	for _, scc := range referenceCycles(graph) {
		c.errs = append(c.errs, cycleError(scc, graph))
	}
	if len(c.errs) > 0 {
		return nil, c.errs
	}

	for _, nd := range c.named {
		c.resolve(nd.name)
	}
	if len(c.errs) > 0 {
		return nil, c.errs
	}

	var classOpts []gen.ClassOption
	if bp.ItemsName != "" {
		classOpts = append(classOpts, gen.WithItemsName(bp.ItemsName))
	}
	if len(bp.FieldOrder) > 0 {
		classOpts = append(classOpts, gen.WithFieldOrder(bp.FieldOrder...))
	}
	class := gen.NewClass(bp.Name, classOpts...)
	for _, nd := range c.named {
		if nd.field {
			class.Field(nd.name, c.built[nd.name])
		}
	}

	// Instantiating once surfaces class-level problems such as an empty
	// record name.
	if _, err := class.New(); err != nil {
		return nil, ValidationErrors{{Code: ErrGeneratorConfig, Message: err.Error()}}
	}
	slog.Debug("blueprint compiled", "name", bp.Name, "definitions", len(c.named))
	return &Compiled{Blueprint: bp, Class: class}, nil
}

// checkStructure validates names, types, references and functions without
// building anything.
func (c *compiler) checkStructure() {
	bp := c.bp
	if strings.TrimSpace(bp.Name) == "" {
		c.errorf(ErrMissingName, "name", "blueprint name is required")
	}
	if len(bp.Fields) == 0 {
		c.errorf(ErrNoFields, "fields", "blueprint must declare at least one field")
	}

	add := func(section string, defs []Def, field bool) {
		for i := range defs {
			d := &defs[i]
			path := fmt.Sprintf("%s[%d]", section, i)
			if d.Name == "" {
				c.errorf(ErrMissingName, path, "%s definition needs a name", strings.TrimSuffix(section, "s"))
				continue
			}
			path = section + "." + d.Name
			if prev, ok := c.byName[d.Name]; ok {
				c.errorf(ErrDuplicateName, path, "name %q is already used by %s", d.Name, prev.path)
				continue
			}
			c.named = append(c.named, namedDef{name: d.Name, path: path, def: d, field: field})
			c.byName[d.Name] = &c.named[len(c.named)-1]
		}
	}
	add("helpers", bp.Helpers, false)
	add("fields", bp.Fields, true)
	// c.named may have grown after pointers were taken.
	for i := range c.named {
		c.byName[c.named[i].name] = &c.named[i]
	}

	for _, nd := range c.named {
		c.checkDef(nd.def, nd.path, true)
	}

	fields := make(map[string]bool)
	for _, nd := range c.named {
		if nd.field {
			fields[nd.name] = true
		}
	}
	seen := make(map[string]bool)
	for i, name := range bp.FieldOrder {
		path := fmt.Sprintf("field_order[%d]", i)
		switch {
		case !fields[name]:
			c.errorf(ErrInvalidOrder, path, "%q is not a field", name)
		case seen[name]:
			c.errorf(ErrInvalidOrder, path, "%q is listed twice", name)
		}
		seen[name] = true
	}
}

func (c *compiler) checkDef(d *Def, path string, top bool) {
	if d.Name != "" && !top && d.Ref != "" {
		c.errorf(ErrInvalidParam, path, "a reference cannot be named")
	}
	switch {
	case d.Ref != "" && d.Type != "":
		c.errorf(ErrInvalidParam, path, "ref and type are mutually exclusive")
		return
	case d.Ref != "":
		if d.Params != nil || d.Inputs != nil || d.Kwargs != nil || d.Func != "" || d.Template != "" || d.Values != nil {
			c.errorf(ErrInvalidParam, path, "a reference takes no other settings")
		}
		if _, ok := c.byName[d.Ref]; !ok {
			c.errorf(ErrUnresolvedRef, path, "unknown reference %q", d.Ref)
		}
		return
	case d.Type == "":
		c.errorf(ErrUnknownType, path, "definition needs a type or a ref")
		return
	case !knownType(d.Type):
		c.errorf(ErrUnknownType, path, "unknown generator type %q", d.Type)
		return
	}

	switch normalizeType(d.Type) {
	case "apply":
		if d.Func == "" {
			c.errorf(ErrUnknownFunc, path, "apply needs a func")
		} else if _, ok := c.funcs[d.Func]; !ok {
			c.errorf(ErrUnknownFunc, path, "unknown function %q", d.Func)
		}
	case "fstr":
		names, err := gen.TemplateNames(d.Template)
		if err != nil {
			c.errorf(ErrInvalidParam, path+".template", "%v", err)
		}
		for _, name := range names {
			if _, ok := c.byName[name]; !ok {
				c.errorf(ErrUnresolvedRef, path+".template", "unknown placeholder {%s}", name)
			}
		}
	}

	for i := range d.Inputs {
		c.checkDef(&d.Inputs[i], fmt.Sprintf("%s.inputs[%d]", path, i), false)
	}
	for i := range d.Kwargs {
		kw := &d.Kwargs[i]
		kwPath := fmt.Sprintf("%s.kwargs[%d]", path, i)
		if kw.Name == "" {
			c.errorf(ErrMissingName, kwPath, "keyword input needs a name")
		}
		c.checkDef(kw, kwPath, true)
	}
}

// resolve returns the generator of a named definition, building it on first
// use. A named definition that is a bare reference becomes a clone of its
// target.
func (c *compiler) resolve(name string) gen.Generator {
	if g, ok := c.built[name]; ok {
		return g
	}
	nd := c.byName[name]
	var g gen.Generator
	if nd.def.Ref != "" {
		if target := c.resolve(nd.def.Ref); target != nil {
			g = target.Clone()
		}
	} else {
		g = c.build(nd.def, nd.path)
	}
	c.built[name] = g
	return g
}

// build turns an inline or named definition into a generator. It returns
// nil after recording an error.
func (c *compiler) build(d *Def, path string) gen.Generator {
	if d.Ref != "" {
		return c.resolve(d.Ref)
	}
	p := c.params(path, d.Params)
	typ := normalizeType(d.Type)

	if d.Values != nil && typ != "selectone" && typ != "selectmultiple" {
		c.errorf(ErrInvalidParam, path+".values", "%s does not take values", d.Type)
		return nil
	}
	if d.Func != "" && typ != "apply" {
		c.errorf(ErrInvalidParam, path+".func", "%s does not take a func", d.Type)
		return nil
	}
	if d.Template != "" && typ != "fstr" {
		c.errorf(ErrInvalidParam, path+".template", "%s does not take a template", d.Type)
		return nil
	}

	g, err := c.buildType(typ, d, p, path)
	p.done()
	if p.failed {
		return nil
	}
	if err != nil {
		c.errorf(ErrGeneratorConfig, path, "%v", err)
		return nil
	}
	if g == nil {
		// An input or keyword failed and recorded its own error.
		return nil
	}
	return g
}

func (c *compiler) buildType(typ string, d *Def, p *params, path string) (gen.Generator, error) {
	switch typ {
	case "constant":
		v, _ := p.get("value", true)
		if !c.inputs(d, path, 0, 0) {
			return nil, nil
		}
		return gen.NewConstant(normalizeValue(v)), nil

	case "boolean":
		prob := p.float("p", 0.5, false)
		if p.failed || !c.inputs(d, path, 0, 0) {
			return nil, nil
		}
		return gen.NewBoolean(prob)

	case "integer":
		lo, hi := p.int("lo", 0, true), p.int("hi", 0, true)
		if p.failed || !c.inputs(d, path, 0, 0) {
			return nil, nil
		}
		return gen.NewInteger(lo, hi)

	case "float":
		lo, hi := p.float("lo", 0, true), p.float("hi", 0, true)
		if p.failed || !c.inputs(d, path, 0, 0) {
			return nil, nil
		}
		return gen.NewFloat(lo, hi)

	case "incremental":
		start, step := p.int("start", 0, false), p.int("step", 1, false)
		if p.failed || !c.inputs(d, path, 0, 0) {
			return nil, nil
		}
		return gen.NewIncremental(start, step), nil

	case "charstring":
		length := p.int("length", 0, true)
		charset := p.string("charset", "<alphanumeric>", false)
		if p.failed || !c.inputs(d, path, 0, 0) {
			return nil, nil
		}
		return gen.NewCharString(int(length), charset)

	case "digitstring":
		length := p.int("length", 0, true)
		if p.failed || !c.inputs(d, path, 0, 0) {
			return nil, nil
		}
		return gen.NewDigitString(int(length))

	case "hashdigest":
		length := p.int("length", 0, true)
		var opts []gen.HashDigestOption
		if p.bool("as_bytes") {
			opts = append(opts, gen.AsBytes())
		}
		if p.bool("lowercase") {
			opts = append(opts, gen.Lowercase())
		}
		if p.failed || !c.inputs(d, path, 0, 0) {
			return nil, nil
		}
		return gen.NewHashDigest(int(length), opts...)

	case "uuid":
		if !c.inputs(d, path, 0, 0) {
			return nil, nil
		}
		return gen.NewUUID(), nil

	case "timestamp":
		cfg := gen.TimestampConfig{
			Start:  p.time("start", false),
			End:    p.time("end", false),
			Date:   p.time("date", false),
			Format: p.string("format", "", false),
		}
		if p.failed || !c.inputs(d, path, 0, 0) {
			return nil, nil
		}
		return gen.NewTimestamp(cfg)

	case "date":
		cfg := gen.DateConfig{
			Start:  p.time("start", true),
			End:    p.time("end", true),
			Format: p.string("format", "", false),
		}
		if p.failed || !c.inputs(d, path, 0, 0) {
			return nil, nil
		}
		return gen.NewDate(cfg)

	case "timestampbetween":
		var opts []gen.TimestampOption
		if date := p.time("date", false); !date.IsZero() {
			opts = append(opts, gen.OnDate(date))
		}
		if format := p.string("format", "", false); format != "" {
			opts = append(opts, gen.WithFormat(format))
		}
		if p.failed || !c.inputs(d, path, 0, 0) {
			return nil, nil
		}
		kw, ok := c.kwargs(d, path, "start", "end")
		if !ok {
			return nil, nil
		}
		return gen.NewTimestampBetween(kw["start"], kw["end"], opts...)

	case "faker":
		method := p.string("method", "", true)
		var opts []gen.FakerOption
		if locale := p.string("locale", "", false); locale != "" {
			opts = append(opts, gen.WithLocale(locale))
		}
		if args := p.stringMap("args"); args != nil {
			opts = append(opts, gen.WithParams(args))
		}
		if c.fakerFactory != nil {
			opts = append(opts, gen.WithProvider(c.fakerFactory))
		}
		if p.failed || !c.inputs(d, path, 0, 0) {
			return nil, nil
		}
		return gen.NewFaker(method, opts...)

	case "apply":
		args, ok := c.buildInputs(d, path)
		if !ok {
			return nil, nil
		}
		var kwargs []gen.Kwarg
		for i := range d.Kwargs {
			kw := &d.Kwargs[i]
			g := c.build(kw, fmt.Sprintf("%s.kwargs[%d]", path, i))
			if g == nil {
				return nil, nil
			}
			kwargs = append(kwargs, gen.KW(kw.Name, g))
		}
		return gen.NewApplyKw(c.funcs[d.Func], args, kwargs...)

	case "lookup":
		if !c.inputs(d, path, 1, 2) || !c.noKwargs(d, path) {
			return nil, nil
		}
		var mapping gen.Generator
		if len(d.Inputs) == 1 {
			v, _ := p.get("mapping", true)
			if p.failed {
				return nil, nil
			}
			mapping = gen.NewConstant(normalizeValue(v))
		}
		ins, ok := c.buildInputs(d, path)
		if !ok {
			return nil, nil
		}
		if mapping == nil {
			mapping = ins[1]
		}
		return gen.NewLookup(ins[0], mapping)

	case "getattribute":
		name := p.string("name", "", true)
		if p.failed || !c.inputs(d, path, 1, 1) || !c.noKwargs(d, path) {
			return nil, nil
		}
		ins, ok := c.buildInputs(d, path)
		if !ok {
			return nil, nil
		}
		return gen.NewGetAttribute(ins[0], name)

	case "selectone":
		var opts []gen.SelectOption
		if w := p.floats("weights"); w != nil {
			opts = append(opts, gen.WithWeights(w...))
		}
		seq := c.sequence(d, path)
		if p.failed || seq == nil {
			return nil, nil
		}
		return gen.NewSelectOne(seq, opts...)

	case "selectmultiple":
		num := c.count(d, p, path)
		seq := c.sequence(d, path)
		if p.failed || seq == nil || num == nil {
			return nil, nil
		}
		return gen.NewSelectMultiple(seq, num)

	case "tee":
		num := c.count(d, p, path)
		if p.failed || !c.inputs(d, path, 1, 1) {
			return nil, nil
		}
		ins, ok := c.buildInputs(d, path)
		if !ok || num == nil {
			return nil, nil
		}
		return gen.NewTee(ins[0], num)

	case "fstr":
		if d.Template == "" {
			c.errorf(ErrInvalidParam, path+".template", "fstr needs a template")
			return nil, nil
		}
		if !c.inputs(d, path, 0, 0) || !c.noKwargs(d, path) {
			return nil, nil
		}
		names, _ := gen.TemplateNames(d.Template)
		refs := make(map[string]gen.Generator, len(names))
		for _, name := range names {
			g := c.resolve(name)
			if g == nil {
				return nil, nil
			}
			refs[name] = g
		}
		return gen.NewFstr(d.Template, refs)
	}
	return nil, fmt.Errorf("unsupported type %q", d.Type)
}

// inputs checks the number of positional inputs.
func (c *compiler) inputs(d *Def, path string, lo, hi int) bool {
	n := len(d.Inputs)
	if n >= lo && n <= hi {
		return true
	}
	switch {
	case lo == hi && lo == 0:
		c.errorf(ErrInvalidInputs, path+".inputs", "%s takes no inputs", d.Type)
	case lo == hi:
		c.errorf(ErrInvalidInputs, path+".inputs", "%s takes %d input(s), got %d", d.Type, lo, n)
	default:
		c.errorf(ErrInvalidInputs, path+".inputs", "%s takes %d to %d inputs, got %d", d.Type, lo, hi, n)
	}
	return false
}

func (c *compiler) noKwargs(d *Def, path string) bool {
	if len(d.Kwargs) == 0 {
		return true
	}
	c.errorf(ErrInvalidInputs, path+".kwargs", "%s takes no keyword inputs", d.Type)
	return false
}

func (c *compiler) buildInputs(d *Def, path string) ([]gen.Generator, bool) {
	out := make([]gen.Generator, len(d.Inputs))
	ok := true
	for i := range d.Inputs {
		out[i] = c.build(&d.Inputs[i], fmt.Sprintf("%s.inputs[%d]", path, i))
		ok = ok && out[i] != nil
	}
	return out, ok
}

// kwargs builds keyword inputs restricted to allowed names. Missing names
// map to nil.
func (c *compiler) kwargs(d *Def, path string, allowed ...string) (map[string]gen.Generator, bool) {
	out := make(map[string]gen.Generator, len(d.Kwargs))
	ok := true
	for i := range d.Kwargs {
		kw := &d.Kwargs[i]
		kwPath := fmt.Sprintf("%s.kwargs[%d]", path, i)
		valid := false
		for _, a := range allowed {
			valid = valid || a == kw.Name
		}
		if !valid {
			c.errorf(ErrInvalidInputs, kwPath, "%s has no keyword input %q", d.Type, kw.Name)
			ok = false
			continue
		}
		if _, dup := out[kw.Name]; dup {
			c.errorf(ErrInvalidInputs, kwPath, "keyword input %q given twice", kw.Name)
			ok = false
			continue
		}
		g := c.build(kw, kwPath)
		if g == nil {
			ok = false
			continue
		}
		out[kw.Name] = g
	}
	return out, ok
}

// sequence returns the source of a selection: fixed values, or the single
// positional input.
func (c *compiler) sequence(d *Def, path string) gen.Generator {
	if d.Values != nil {
		if !c.inputs(d, path, 0, 0) {
			return nil
		}
		if len(d.Values) == 0 {
			c.errorf(ErrInvalidParam, path+".values", "values must not be empty")
			return nil
		}
		return gen.NewConstant(normalizeValue(d.Values))
	}
	if !c.inputs(d, path, 1, 1) {
		return nil
	}
	ins, ok := c.buildInputs(d, path)
	if !ok {
		return nil
	}
	return ins[0]
}

// count returns the size input of selectmultiple and tee: params.num, or a
// keyword input named num.
func (c *compiler) count(d *Def, p *params, path string) gen.Generator {
	_, fixed := p.m["num"]
	hasKw := len(d.Kwargs) == 1 && d.Kwargs[0].Name == "num"
	switch {
	case fixed && len(d.Kwargs) == 0:
		n := p.int("num", 0, true)
		if n < 0 {
			p.fail("num", "must not be negative, got %d", n)
		}
		if p.failed {
			return nil
		}
		return gen.NewConstant(n)
	case !fixed && hasKw:
		kw, ok := c.kwargs(d, path, "num")
		if !ok {
			return nil
		}
		return kw["num"]
	}
	c.errorf(ErrInvalidInputs, path, "%s needs either params.num or a keyword input num", d.Type)
	return nil
}
