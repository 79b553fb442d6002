package validation

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type sample struct {
	Season int     `json:"season" validate:"min=1,max=4"`
	Temp   float64 `json:"temp" validate:"min=0,max=1"`
	Mode   string  `json:"mode" validate:"oneof=text json"`
	Name   string  `validate:"omitempty,min=2"`
	Hidden string  `json:"-"`
}

func TestValidator_Singleton(t *testing.T) {
	if Validator() != Validator() {
		t.Error("Validator() should return the same instance")
	}
}

func TestStruct_Valid(t *testing.T) {
	s := sample{Season: 4, Temp: 1, Mode: "json"}
	if err := Struct(&s); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStruct_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		in         sample
		wantFields []string
		wantMsg    string
	}{
		{
			name:       "season too high",
			in:         sample{Season: 5, Temp: 0.5, Mode: "text"},
			wantFields: []string{"season"},
			wantMsg:    "season must be at most 4",
		},
		{
			name:       "temp below zero",
			in:         sample{Season: 1, Temp: -0.1, Mode: "text"},
			wantFields: []string{"temp"},
			wantMsg:    "temp must be at least 0",
		},
		{
			name:       "bad enum",
			in:         sample{Season: 1, Temp: 0.5, Mode: "xml"},
			wantFields: []string{"mode"},
			wantMsg:    "mode must be one of: text json",
		},
		{
			name:       "string length uses field name without json tag",
			in:         sample{Season: 1, Temp: 0.5, Mode: "text", Name: "x"},
			wantFields: []string{"Name"},
			wantMsg:    "Name must be at least 2 characters",
		},
		{
			name:       "several fields in declaration order",
			in:         sample{Season: 0, Temp: 2, Mode: "text"},
			wantFields: []string{"season", "temp"},
			wantMsg:    "season must be at least 1; temp must be at most 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.in)
			if err == nil {
				t.Fatal("expected error")
			}

			var verr *Errors
			if !errors.As(err, &verr) {
				t.Fatalf("expected *Errors, got %T", err)
			}
			if !reflect.DeepEqual(verr.Fields(), tt.wantFields) {
				t.Errorf("Fields() = %v, want %v", verr.Fields(), tt.wantFields)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Error() = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestStruct_FieldErrorDetails(t *testing.T) {
	err := Struct(&sample{Season: 9, Temp: 0.5, Mode: "text"})

	var verr *Errors
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Errors, got %T", err)
	}
	list := verr.List()
	if len(list) != 1 {
		t.Fatalf("len(List()) = %d, want 1", len(list))
	}
	fe := list[0]
	if fe.Tag() != "max" || fe.Param() != "4" || fe.Value() != 9 {
		t.Errorf("unexpected details: tag=%s param=%s value=%v", fe.Tag(), fe.Param(), fe.Value())
	}
}
