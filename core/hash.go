package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// anonymousSuffixDigits is the number of decimal digits kept from a consultant hash.
const anonymousSuffixDigits = 10000

// ComputeConsultantHash computes the 32-bit polynomial rolling hash of consultantID+projectID.
//
// Formula: h = h*31 + c over UTF-16 code units, wrapping at 32 bits.
//
// The hash is order-sensitive, so the same consultant gets a different value per project.
// It is an obfuscation, not a security boundary; see ComputeKeyedConsultantHash.
func ComputeConsultantHash(consultantID, projectID string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(consultantID + projectID)) {
		h = h*31 + int32(unit)
	}
	return h
}

// ConsultantHashSuffix returns the last four decimal digits of |ComputeConsultantHash|, zero-padded.
func ConsultantHashSuffix(consultantID, projectID string) string {
	h := int64(ComputeConsultantHash(consultantID, projectID))
	if h < 0 {
		h = -h
	}
	return fmt.Sprintf("%04d", h%anonymousSuffixDigits)
}

// ComputeKeyedConsultantHash computes HMAC-SHA256(key, consultantID + "|" + projectID).
// Without the key the consultant behind a suffix cannot be brute-forced from known IDs.
func ComputeKeyedConsultantHash(key []byte, consultantID, projectID string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(consultantID + "|" + projectID))
	return mac.Sum(nil)
}

// KeyedConsultantHashSuffix reduces the keyed hash to four zero-padded decimal digits.
func KeyedConsultantHashSuffix(key []byte, consultantID, projectID string) string {
	sum := ComputeKeyedConsultantHash(key, consultantID, projectID)
	return fmt.Sprintf("%04d", binary.BigEndian.Uint32(sum[:4])%anonymousSuffixDigits)
}
