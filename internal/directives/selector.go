package directives

// Selector wraps a CSS selector string, retaining its original source text
// (String returns it unchanged), matching how
// directives/selector.rs keeps the raw selector alongside its compiled
// cssparser::Selector. Compilation itself is deferred to goquery at
// Eval-time (internal/directives/expr), so Selector here is a thin,
// string-typed alias rather than a pre-compiled matcher.
type Selector string

// String returns the selector's original source text.
func (s Selector) String() string { return string(s) }
