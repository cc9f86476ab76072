package lexer

import "fmt"

// Kind identifies the lexical class of a token.
type Kind int

const (
	Illegal Kind = iota
	Whitespace
	CRLF
	LineComment
	MultilineSeparator

	// Macros
	MacroNameDeclaration
	AssignValue
	MacroValue
	MacroUsage

	// Headers
	HeaderModeInsert
	HeaderModeUpdate
	HeaderModeInsertUpdate
	HeaderModeRemove
	HeaderType
	HeaderParameterName
	HeaderSpecialParameterName
	DocumentID
	LeftSquareBracket
	RightSquareBracket
	LeftRoundBracket
	RightRoundBracket
	Comma
	AttributeName
	AttributeValue
	AttributeSeparator
	ParametersSeparator
	CollectionAppendPrefix
	CollectionRemovePrefix
	CollectionMergePrefix

	// Value lines
	FieldValueSeparator
	FieldValue
	FieldValueIgnore
	FieldValueNull
	ValueSubtype
	DoubleString
	SingleString
	FieldValueJarPrefix
	FieldValueZipPrefix
	FieldValueFilePrefix
	FieldValueHTTPPrefix

	// Scripts
	BeanShellMarker
	GroovyMarker
	JavascriptMarker
	ScriptBodyValue

	// User rights
	StartUserRights
	EndUserRights
	Type
	UID
	MemberOfGroups
	Password
	Target
	Permission
	PermissionAllowed
	PermissionDenied
	PermissionInherited
	FieldListItemSeparator
)

//nolint:gochecknoglobals // Lookup table for Kind.String.
var kindNames = [...]string{
	Illegal:                    "ILLEGAL",
	Whitespace:                 "WHITE_SPACE",
	CRLF:                       "CRLF",
	LineComment:                "LINE_COMMENT",
	MultilineSeparator:         "MULTILINE_SEPARATOR",
	MacroNameDeclaration:       "MACRO_NAME_DECLARATION",
	AssignValue:                "ASSIGN_VALUE",
	MacroValue:                 "MACRO_VALUE",
	MacroUsage:                 "MACRO_USAGE",
	HeaderModeInsert:           "HEADER_MODE_INSERT",
	HeaderModeUpdate:           "HEADER_MODE_UPDATE",
	HeaderModeInsertUpdate:     "HEADER_MODE_INSERT_UPDATE",
	HeaderModeRemove:           "HEADER_MODE_REMOVE",
	HeaderType:                 "HEADER_TYPE",
	HeaderParameterName:        "HEADER_PARAMETER_NAME",
	HeaderSpecialParameterName: "HEADER_SPECIAL_PARAMETER_NAME",
	DocumentID:                 "DOCUMENT_ID",
	LeftSquareBracket:          "LEFT_SQUARE_BRACKET",
	RightSquareBracket:         "RIGHT_SQUARE_BRACKET",
	LeftRoundBracket:           "LEFT_ROUND_BRACKET",
	RightRoundBracket:          "RIGHT_ROUND_BRACKET",
	Comma:                      "COMMA",
	AttributeName:              "ATTRIBUTE_NAME",
	AttributeValue:             "ATTRIBUTE_VALUE",
	AttributeSeparator:         "ATTRIBUTE_SEPARATOR",
	ParametersSeparator:        "PARAMETERS_SEPARATOR",
	CollectionAppendPrefix:     "COLLECTION_APPEND_PREFIX",
	CollectionRemovePrefix:     "COLLECTION_REMOVE_PREFIX",
	CollectionMergePrefix:      "COLLECTION_MERGE_PREFIX",
	FieldValueSeparator:        "FIELD_VALUE_SEPARATOR",
	FieldValue:                 "FIELD_VALUE",
	FieldValueIgnore:           "FIELD_VALUE_IGNORE",
	FieldValueNull:             "FIELD_VALUE_NULL",
	ValueSubtype:               "VALUE_SUBTYPE",
	DoubleString:               "DOUBLE_STRING",
	SingleString:               "SINGLE_STRING",
	FieldValueJarPrefix:        "FIELD_VALUE_JAR_PREFIX",
	FieldValueZipPrefix:        "FIELD_VALUE_ZIP_PREFIX",
	FieldValueFilePrefix:       "FIELD_VALUE_FILE_PREFIX",
	FieldValueHTTPPrefix:       "FIELD_VALUE_HTTP_PREFIX",
	BeanShellMarker:            "BEAN_SHELL_MARKER",
	GroovyMarker:               "GROOVY_MARKER",
	JavascriptMarker:           "JAVASCRIPT_MARKER",
	ScriptBodyValue:            "SCRIPT_BODY_VALUE",
	StartUserRights:            "START_USERRIGHTS",
	EndUserRights:              "END_USERRIGHTS",
	Type:                       "TYPE",
	UID:                        "UID",
	MemberOfGroups:             "MEMBEROFGROUPS",
	Password:                   "PASSWORD",
	Target:                     "TARGET",
	Permission:                 "PERMISSION",
	PermissionAllowed:          "PERMISSION_ALLOWED",
	PermissionDenied:           "PERMISSION_DENIED",
	PermissionInherited:        "PERMISSION_INHERITED",
	FieldListItemSeparator:     "FIELD_LIST_ITEM_SEPARATOR",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsHeaderMode reports whether k is one of the four header mode keywords.
func (k Kind) IsHeaderMode() bool {
	return k >= HeaderModeInsert && k <= HeaderModeRemove
}

// IsTrivia reports whether k carries no syntactic meaning.
func (k Kind) IsTrivia() bool {
	return k == Whitespace || k == MultilineSeparator
}

// IsValuePrefix reports whether k is a jar:, zip:, file: or http: prefix.
func (k Kind) IsValuePrefix() bool {
	return k >= FieldValueJarPrefix && k <= FieldValueHTTPPrefix
}

// IsScriptMarker reports whether k opens a script line.
func (k Kind) IsScriptMarker() bool {
	return k >= BeanShellMarker && k <= JavascriptMarker
}

// IsUserRightsKeyword reports whether k is a fixed user rights header column.
func (k Kind) IsUserRightsKeyword() bool {
	return k >= Type && k <= Target
}

// Token is an immutable slice of the source. Start and End are byte offsets.
type Token struct {
	Kind  Kind
	Start int
	End   int
	Text  string
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Text, t.Start)
}

// Len returns the token length in bytes.
func (t Token) Len() int {
	return t.End - t.Start
}
