// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package wallet

import (
	"path/filepath"
	"testing"
)

func TestCleanAndExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("TESTSUBDIR", "sub")
	tests := []struct {
		path string
		want string
	}{
		{"", ""},
		{"/var/log//hostwallet/", "/var/log/hostwallet"},
		{"relative/../wallet.conf", "wallet.conf"},
		{"/data/$TESTSUBDIR/logs", "/data/sub/logs"},
		{"~", "/home/tester"},
		{"~/.hostwallet/logs", filepath.Join("/home/tester", ".hostwallet/logs")},
		// Other users' home directories are not expanded.
		{"~otheruser/logs", "~otheruser/logs"},
	}
	for _, test := range tests {
		if got := CleanAndExpandPath(test.path); got != test.want {
			t.Errorf("CleanAndExpandPath(%q) = %q, want %q", test.path, got, test.want)
		}
	}
}
