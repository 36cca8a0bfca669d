package sbp

// Code identifies a signal's tracking type, using the same small integer
// space SBP observations carry on the wire.
type Code uint8

// A representative subset of the signal codes the translators emit.
const (
	CodeGPSL1CA Code = iota
	CodeGPSL2CM
	CodeGPSL2CL
	CodeGPSL2P
	CodeGALE1B
	CodeGALE1C
	CodeGLOL1CA
	CodeGLOL2CA
	CodeBDSB1I
	CodeBDSB2I
)

// canonicalCode maps a code that has more than one on-wire spelling for the
// same physical signal onto the single spelling downstream matching
// compares against (e.g. the L2C civil-long and civil-moderate components
// are tracked separately but treated as the same signal here).
var canonicalCode = map[Code]Code{
	CodeGPSL2CL: CodeGPSL2CM,
	CodeGALE1C:  CodeGALE1B,
}

// Canonicalize rewrites code to its canonical form, a no-op for codes that
// have only one spelling.
func Canonicalize(c Code) Code {
	if canon, ok := canonicalCode[c]; ok {
		return canon
	}
	return c
}
