package syntax

import "fmt"

// Kind is the tag of a tree node. Consumers switch on it; there is no
// visitor.
type Kind int

const (
	File Kind = iota
	Leaf
	Error
	Comment

	MacroDeclaration
	MacroNameDec
	MacroValueDec
	MacroUsageDec

	HeaderLine
	AnyHeaderMode
	FullHeaderType
	HeaderTypeName
	Modifiers
	Attribute
	AnyAttributeName
	AnyAttributeValue
	FullHeaderParameter
	AnyHeaderParameterName
	Parameters
	Parameter
	DocumentIDDec
	DocumentIDUsage

	ValueLine
	SubTypeName
	ValueGroup
	Value
	String

	Script
	BeanshellScriptBody
	GroovyScriptBody
	JavascriptScriptBody

	UserRights
	UserRightsStart
	UserRightsHeaderLine
	UserRightsHeaderParameter
	UserRightsValueLine
	UserRightsFirstValueGroup
	UserRightsValueGroup
	UserRightsSingleValue
	UserRightsMultiValue
	UserRightsPermissionValue
	UserRightsAttributeValue
	UserRightsEnd
)

//nolint:gochecknoglobals // Lookup table for Kind.String.
var kindNames = [...]string{
	File:                      "File",
	Leaf:                      "Leaf",
	Error:                     "Error",
	Comment:                   "Comment",
	MacroDeclaration:          "MacroDeclaration",
	MacroNameDec:              "MacroNameDec",
	MacroValueDec:             "MacroValueDec",
	MacroUsageDec:             "MacroUsageDec",
	HeaderLine:                "HeaderLine",
	AnyHeaderMode:             "AnyHeaderMode",
	FullHeaderType:            "FullHeaderType",
	HeaderTypeName:            "HeaderTypeName",
	Modifiers:                 "Modifiers",
	Attribute:                 "Attribute",
	AnyAttributeName:          "AnyAttributeName",
	AnyAttributeValue:         "AnyAttributeValue",
	FullHeaderParameter:       "FullHeaderParameter",
	AnyHeaderParameterName:    "AnyHeaderParameterName",
	Parameters:                "Parameters",
	Parameter:                 "Parameter",
	DocumentIDDec:             "DocumentIDDec",
	DocumentIDUsage:           "DocumentIDUsage",
	ValueLine:                 "ValueLine",
	SubTypeName:               "SubTypeName",
	ValueGroup:                "ValueGroup",
	Value:                     "Value",
	String:                    "String",
	Script:                    "Script",
	BeanshellScriptBody:       "BeanshellScriptBody",
	GroovyScriptBody:          "GroovyScriptBody",
	JavascriptScriptBody:      "JavascriptScriptBody",
	UserRights:                "UserRights",
	UserRightsStart:           "UserRightsStart",
	UserRightsHeaderLine:      "UserRightsHeaderLine",
	UserRightsHeaderParameter: "UserRightsHeaderParameter",
	UserRightsValueLine:       "UserRightsValueLine",
	UserRightsFirstValueGroup: "UserRightsFirstValueGroup",
	UserRightsValueGroup:      "UserRightsValueGroup",
	UserRightsSingleValue:     "UserRightsSingleValue",
	UserRightsMultiValue:      "UserRightsMultiValue",
	UserRightsPermissionValue: "UserRightsPermissionValue",
	UserRightsAttributeValue:  "UserRightsAttributeValue",
	UserRightsEnd:             "UserRightsEnd",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsScriptBody reports whether k holds an opaque script body.
func (k Kind) IsScriptBody() bool {
	return k >= BeanshellScriptBody && k <= JavascriptScriptBody
}

// IsUserRightsValue reports whether k is one of the four user rights cell kinds.
func (k Kind) IsUserRightsValue() bool {
	return k >= UserRightsSingleValue && k <= UserRightsAttributeValue
}
