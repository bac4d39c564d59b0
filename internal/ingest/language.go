// Package ingest turns source files into graph facts: the File/Symbol/
// Reference/Call/AstNode/CfgBlock/CodeChunk entities spec §3 defines, via
// per-language tree-sitter queries (spec §4.4). The query strings and the
// capture-name conventions (@kind, @kind.name) are carried over from the
// teacher's internal/parser/parser_language_setup.go, generalized from its
// BlockBoundary/Symbol pair into this system's Symbol/AstNode pair.
package ingest

import (
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/oldnordic/magellan-go/internal/types"
)

// captureKind maps a query's primary capture name ("function", "method", …)
// to the normalized cross-language SymbolKind spec §3 defines.
var captureKind = map[string]types.SymbolKind{
	"function":    types.KindFunction,
	"method":      types.KindMethod,
	"constructor": types.KindMethod,
	"class":       types.KindClass,
	"struct":      types.KindClass,
	"record":      types.KindClass,
	"interface":   types.KindInterface,
	"trait":       types.KindInterface,
	"enum":        types.KindEnum,
	"type":        types.KindTypeAlias,
	"module":      types.KindModule,
	"namespace":   types.KindNamespace,
}

// languageSpec is one entry in the per-extension dispatch table.
type languageSpec struct {
	Name       string // language identifier stored on Symbol.Language
	Extensions []string
	LoadLang   func() *tree_sitter.Language
	QuerySrc   string
}

// languageTable lists every supported language (spec §4.4's 8 named
// languages plus the teacher's extra grammars: go, csharp, php, zig, which
// the teacher's go.mod already requires, so extending coverage to them
// costs nothing and gives those dependencies a real caller).
var languageTable = []languageSpec{
	{
		Name:       "javascript",
		Extensions: []string{".js", ".jsx"},
		LoadLang:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_javascript.Language()) },
		QuerySrc: `
			(function_declaration name: (identifier) @function.name) @function
			(generator_function_declaration name: (identifier) @function.name) @function
			(variable_declarator
				name: (identifier) @function.name
				value: [(arrow_function) (function_expression) (generator_function)]) @function
			(method_definition name: (property_identifier) @method.name) @method
			(class_declaration name: (identifier) @class.name) @class
		`,
	},
	{
		Name:       "typescript",
		Extensions: []string{".ts", ".tsx"},
		LoadLang:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()) },
		QuerySrc: `
			(function_declaration name: (identifier) @function.name) @function
			(generator_function_declaration name: (identifier) @function.name) @function
			(method_definition name: (property_identifier) @method.name) @method
			(function_expression name: (identifier) @function.name) @function
			(class_declaration name: (type_identifier) @class.name) @class
			(interface_declaration name: (type_identifier) @interface.name) @interface
			(type_alias_declaration name: (type_identifier) @type.name) @type
			(enum_declaration name: (identifier) @enum.name) @enum
		`,
	},
	{
		Name:       "go",
		Extensions: []string{".go"},
		LoadLang:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_go.Language()) },
		QuerySrc: `
			(function_declaration name: (identifier) @function.name) @function
			(method_declaration name: (field_identifier) @method.name) @method
			(type_declaration (type_spec name: (type_identifier) @type.name)) @type
		`,
	},
	{
		Name:       "python",
		Extensions: []string{".py"},
		LoadLang:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_python.Language()) },
		QuerySrc: `
			(class_definition
				body: (block
					(function_definition name: (identifier) @method.name))) @method
			(function_definition name: (identifier) @function.name) @function
			(class_definition name: (identifier) @class.name) @class
		`,
	},
	{
		Name:       "rust",
		Extensions: []string{".rs"},
		LoadLang:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_rust.Language()) },
		QuerySrc: `
			(impl_item
				body: (declaration_list
					(function_item name: (identifier) @method.name))) @method
			(trait_item
				body: (declaration_list
					(function_item name: (identifier) @method.name))) @method
			(function_item name: (identifier) @function.name) @function
			(struct_item name: (type_identifier) @struct.name) @struct
			(enum_item name: (type_identifier) @enum.name) @enum
			(trait_item name: (type_identifier) @interface.name) @interface
			(type_item name: (type_identifier) @type.name) @type
			(mod_item name: (identifier) @module.name) @module
		`,
	},
	{
		// No standalone tree-sitter-c grammar exists anywhere in the example
		// pack; c and cpp share the cpp grammar, matching upstream
		// tree-sitter's own recommendation for C given the grammars'
		// near-total syntactic overlap for the node shapes queried here.
		Name:       "cpp",
		Extensions: []string{".cpp", ".cc", ".cxx", ".c", ".h", ".hpp"},
		LoadLang:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_cpp.Language()) },
		QuerySrc: `
			(function_definition declarator: (function_declarator declarator: (identifier) @function.name)) @function
			(class_specifier name: (type_identifier) @class.name) @class
			(struct_specifier name: (type_identifier) @struct.name) @struct
			(enum_specifier name: (type_identifier) @enum.name) @enum
		`,
	},
	{
		Name:       "java",
		Extensions: []string{".java"},
		LoadLang:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_java.Language()) },
		QuerySrc: `
			(method_declaration name: (identifier) @method.name) @method
			(constructor_declaration name: (identifier) @constructor.name) @constructor
			(class_declaration name: (identifier) @class.name) @class
			(record_declaration name: (identifier) @class.name) @class
			(interface_declaration name: (identifier) @interface.name) @interface
			(enum_declaration name: (identifier) @enum.name) @enum
		`,
	},
	{
		Name:       "csharp",
		Extensions: []string{".cs"},
		LoadLang:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_csharp.Language()) },
		QuerySrc: `
			(method_declaration name: (identifier) @method.name) @method
			(constructor_declaration name: (identifier) @constructor.name) @constructor
			(class_declaration name: (identifier) @class.name) @class
			(interface_declaration name: (identifier) @interface.name) @interface
			(struct_declaration name: (identifier) @struct.name) @struct
			(record_declaration name: (identifier) @record.name) @record
			(enum_declaration name: (identifier) @enum.name) @enum
			(namespace_declaration name: (qualified_name) @namespace.name) @namespace
			(namespace_declaration name: (identifier) @namespace.name) @namespace
		`,
	},
	{
		Name:       "php",
		Extensions: []string{".php", ".phtml"},
		LoadLang:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP()) },
		QuerySrc: `
			(class_declaration name: (name) @class.name) @class
			(interface_declaration name: (name) @interface.name) @interface
			(trait_declaration name: (name) @trait.name) @trait
			(enum_declaration name: (name) @enum.name) @enum
			(function_definition name: (name) @function.name) @function
			(method_declaration name: (name) @method.name) @method
			(namespace_definition name: (namespace_name) @namespace.name) @namespace
		`,
	},
	{
		Name:       "zig",
		Extensions: []string{".zig"},
		LoadLang:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_zig.Language()) },
		QuerySrc: `
			(function_declaration (identifier) @function.name) @function
		`,
	},
}

// astNodeKinds maps raw grammar node-type strings (tree_sitter.Node.Kind())
// to the normalized AstKind vocabulary (spec §4.4). The same normalized
// kind is reachable from many different grammar node names since every
// supported language spells "if" and "while" differently.
var astNodeKinds = map[string]types.AstKind{
	"if_statement":        types.AstIf,
	"if_expression":        types.AstIf,
	"while_statement":      types.AstWhile,
	"while_expression":     types.AstWhile,
	"for_statement":        types.AstFor,
	"for_expression":       types.AstFor,
	"match_expression":     types.AstMatch,
	"switch_statement":     types.AstMatch,
	"switch_expression":    types.AstMatch,
	"function_declaration": types.AstFunction,
	"function_definition":  types.AstFunction,
	"function_item":        types.AstFunction,
	"method_declaration":   types.AstFunction,
	"method_definition":    types.AstFunction,
	"struct_item":          types.AstStruct,
	"struct_specifier":     types.AstStruct,
	"struct_declaration":   types.AstStruct,
	"impl_item":            types.AstImpl,
	"class_declaration":    types.AstClass,
	"class_specifier":      types.AstClass,
	"class_definition":     types.AstClass,
	"block":                types.AstBlock,
	"compound_statement":   types.AstBlock,
	"call_expression":      types.AstCall,
	"call":                 types.AstCall,
}
