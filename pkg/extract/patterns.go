package extract

import "regexp"

// Format tags the pattern pass that produced a candidate.
type Format string

const (
	FormatExplicitLabel Format = "explicit_label"
	FormatStandard16    Format = "standard_16"
	FormatBankTransfer  Format = "bank_transfer"
	FormatLong20        Format = "long_20"
	FormatNumeric       Format = "numeric"
	FormatGeneric       Format = "generic"
)

// labelVocab matches the explicit reference labels payment apps print next
// to the UTR (GPay, PhonePe, Paytm, bank apps).
const labelVocab = `(?:UTR(?:\s*No\.?)?|Reference(?:\s*No\.?)?|Ref(?:\s*No\.?)?|Transaction\s*(?:ID|Ref(?:erence)?)|Txn\s*(?:ID|Ref)|UPI\s*Ref(?:erence)?(?:\s*No\.?)?)`

// refPattern is one pass of the ordered matcher list. Passes run in table
// order; when two candidates score the same confidence the earlier pass wins.
type refPattern struct {
	re   *regexp.Regexp
	base int
	tag  Format
}

var patterns = []refPattern{
	// An explicit label strongly disambiguates intent.
	{regexp.MustCompile(`(?i)\b` + labelVocab + `\s*[:#.\-]?\s*([A-Za-z0-9]{10,20})\b`), 98, FormatExplicitLabel},
	// Standard UPI reference: exactly 16 alphanumeric characters.
	{regexp.MustCompile(`\b([A-Za-z0-9]{16})\b`), 95, FormatStandard16},
	// IMPS/bank-transfer form T-<digits>.
	{regexp.MustCompile(`\b(T-\d{12,15})\b`), 90, FormatBankTransfer},
	// Long-format 20-character token.
	{regexp.MustCompile(`\b([A-Za-z0-9]{20})\b`), 85, FormatLong20},
	// NEFT/RTGS style numeric run.
	{regexp.MustCompile(`\b(\d{10,15})\b`), 80, FormatNumeric},
	// Generic fallback.
	{regexp.MustCompile(`\b([A-Za-z0-9]{10,20})\b`), 70, FormatGeneric},
}
