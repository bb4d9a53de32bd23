// Package classify maps markup filenames found in module folders to their
// destination in the theme tree.
//
// The suffix convention is:
//
//	<base>.section.liquid   -> <sections>/<base>.liquid
//	<base>.template.liquid  -> <template dest>/<base>.liquid
//	<anything else>         -> <snippets>/<name unchanged>
//
// The template destination is a parameter. Historically template files were
// placed in the sections directory, so that remains the default.
package classify
