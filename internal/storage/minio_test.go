package storage

import "testing"

func TestProposalKey(t *testing.T) {
	if got := ProposalKey(3, 17, "SENT"); got != "partners/3/proposals/17-SENT.pdf" {
		t.Fatalf("unexpected key %q", got)
	}
}
