package domain

import "testing"

// FuzzParseBSN checks that parsing never panics and accepted values round-trip.
func FuzzParseBSN(f *testing.F) {
	f.Add("")
	f.Add("111222333")
	f.Add("12345672")
	f.Add("000000000")
	f.Add("'; DROP TABLE users;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		bsn, err := ParseBSN(input)
		if err != nil {
			return
		}
		if len(bsn) != 9 {
			t.Errorf("accepted BSN has length %d", len(bsn))
		}
		again, err := ParseBSN(bsn.String())
		if err != nil {
			t.Errorf("accepted BSN failed round-trip: %v", err)
		}
		if again != bsn {
			t.Error("round-trip changed BSN value")
		}
	})
}
