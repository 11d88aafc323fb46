package common

// WipeByteArray overwrites b with zeros so passwords read from the terminal
// do not linger in memory. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// BearerValue formats a credential for the Authorization header.
func BearerValue(credential string) string {
	return BearerScheme + " " + credential
}
