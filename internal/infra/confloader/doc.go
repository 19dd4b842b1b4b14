// Package confloader layers kvwire configuration with koanf.
//
// Later layers win: the YAML file, then KVWIRE_SECTION_KEY environment
// variables, then override maps built from command-line flags. Values
// no layer sets keep whatever the target struct held (its defaults).
// The loader records the layer behind every key for `config show
// --origins`.
package confloader
