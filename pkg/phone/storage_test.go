package phone

import (
	"errors"
	"testing"
)

func TestStorageForm(t *testing.T) {
	n, err := New("(555) 123-4567", KindCell, DefaultRegion)
	if err != nil {
		t.Fatal(err)
	}

	stored := ToStorageForm(n)
	if stored != `{"original":"(555) 123-4567","type":"Cell"}` {
		t.Fatalf("unexpected storage form %s", stored)
	}

	back, err := FromStorageForm(stored, DefaultRegion)
	if err != nil {
		t.Fatal(err)
	}
	if back != n {
		t.Errorf("FromStorageForm = %+v, want %+v", back, n)
	}
}

func TestFromStorageFormLegacyNumber(t *testing.T) {
	n, err := FromStorageForm("555-123-4567", DefaultRegion)
	if err != nil {
		t.Fatal(err)
	}
	if n.Raw != "555-123-4567" || n.Kind != KindHome || n.Normalized != "+15551234567" {
		t.Errorf("unexpected legacy number %+v", n)
	}
}

func TestFromStorageFormUnknownType(t *testing.T) {
	n, err := FromStorageForm(`{"original":"5551234567","type":"Fax"}`, DefaultRegion)
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != KindHome {
		t.Errorf("kind = %v, want Home", n.Kind)
	}
}

func TestFromStorageFormErrors(t *testing.T) {
	if _, err := FromStorageForm(`{"original":`, DefaultRegion); err == nil {
		t.Error("expected error for truncated JSON")
	}
	if _, err := FromStorageForm(`{"type":"Cell"}`, DefaultRegion); !errors.Is(err, ErrFormat) {
		t.Errorf("error = %v, want ErrFormat", err)
	}
	if _, err := FromStorageForm("", DefaultRegion); !errors.Is(err, ErrFormat) {
		t.Errorf("error = %v, want ErrFormat", err)
	}
}
