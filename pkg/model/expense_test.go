package model

import "testing"

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input   string
		want    ExpenseCategory
		wantErr bool
	}{
		{"travel", CategoryTravel, false},
		{"Office Supplies", CategoryOfficeSupplies, false},
		{"office-supplies", CategoryOfficeSupplies, false},
		{"OTHER", CategoryOther, false},
		{"groceries", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCategory(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestApprovalDecision_Validate(t *testing.T) {
	for _, s := range []ApprovalStatus{ApprovalApproved, ApprovalRejected} {
		if err := (ApprovalDecision{Status: s}).Validate(); err != nil {
			t.Errorf("Validate(%q): %v", s, err)
		}
	}
	if err := (ApprovalDecision{Status: ApprovalPending}).Validate(); err == nil {
		t.Error("expected error for pending decision")
	}
}
