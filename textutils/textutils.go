// Package textutils holds small character and string constants shared by the
// logging, error, and configuration packages so they don't each sprinkle the
// same literals around.
package textutils

const (
	EmptyStr      = ""
	WhiteSpaceStr = " "
	NewLineString = "\n"
	PeriodStr     = "."
	ColonStr      = ":"
	SemiColonStr  = ";"
	ForwardSlashStr = "/"
	EqualStr      = "="
	CloseBraceStr = "}"

	ALowerChar       = 'a'
	ZLowerChar       = 'z'
	AUpperChar       = 'A'
	ZUpperChar       = 'Z'
	BackSlashChar    = '\\'
	ForwardSlashChar = '/'
	ColonChar        = ':'
	DollarChar       = '$'
	EqualChar        = '='
	HashChar         = '#'
	OpenBraceChar    = '{'
	CloseBraceChar   = '}'
)
