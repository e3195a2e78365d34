package llm

import "testing"

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := BuildInvoiceJSONSchema()
	cases := []struct {
		name string
		data string
		ok   bool
	}{
		{"empty object", `{}`, true},
		{"strings", `{"Company Name":"ACME","Total":"42"}`, true},
		{"numbers", `{"Total":42,"Quantity":1}`, true},
		{"lists", `{"Description":["A","B"],"Amount":[5,10]}`, true},
		{"nulls", `{"Due Date":null}`, true},
		{"extra keys tolerated", `{"Note":"model commentary"}`, true},
		{"nested object rejected", `{"Total":{"value":42}}`, false},
		{"boolean rejected", `{"Total":true}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateJSONAgainstSchema(schema, []byte(tc.data))
			if tc.ok && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	if err := ValidateJSONAgainstSchema(BuildInvoiceJSONSchema(), []byte(`{not json`)); err == nil {
		t.Fatal("expected error for malformed data")
	}
}
