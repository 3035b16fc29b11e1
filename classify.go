package rzip

// classifyPrefixLen bounds how much of a new entry's content is
// inspected to decide text vs binary.
const classifyPrefixLen = 1024

// binaryRatioThreshold is the fraction of non-printable bytes above
// which a prefix is classified as binary.
const binaryRatioThreshold = 0.3

// isTextByte reports whether b is a printable ASCII byte or one of the
// common whitespace control characters tolerated in text files.
func isTextByte(b byte) bool {
	if b >= 0x20 && b <= 0x7E {
		return true
	}
	switch b {
	case '\n', '\r', '\t', 0x0B:
		return true
	}
	return false
}

// classifyText reports whether prefix should be treated as text: the
// fraction of non-printable bytes in it does not exceed
// binaryRatioThreshold. An empty prefix is classified as text.
func classifyText(prefix []byte) bool {
	if len(prefix) == 0 {
		return true
	}
	nonText := 0
	for _, b := range prefix {
		if !isTextByte(b) {
			nonText++
		}
	}
	ratio := float64(nonText) / float64(len(prefix))
	return ratio <= binaryRatioThreshold
}
