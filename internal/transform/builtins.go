package transform

// builtins assembles the full catalog of built-in transformers.
func builtins() []builtin {
	var all []builtin
	all = append(all, imputeBuiltins()...)
	all = append(all, scaleBuiltins()...)
	all = append(all, encodeBuiltins()...)
	all = append(all, textBuiltins()...)
	all = append(all, datetimeBuiltins()...)
	all = append(all, castBuiltins()...)
	return all
}
