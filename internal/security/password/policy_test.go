package password

import "testing"

func TestValidate_AllRulesPass(t *testing.T) {
	p := Policy{
		MinLength:      10,
		RequireUpper:   true,
		RequireLower:   true,
		RequireNumber:  true,
		RequireSpecial: true,
		MinUniqueChars: 5,
	}
	ok, vs := p.Validate("Abcdef123!xyz")
	if !ok || len(vs) != 0 {
		t.Fatalf("expected no violations, got %v", vs)
	}
}

func TestValidate_ReturnsCompleteList(t *testing.T) {
	p := Policy{
		MinLength:      12,
		RequireUpper:   true,
		RequireLower:   true,
		RequireNumber:  true,
		RequireSpecial: true,
		MinUniqueChars: 4,
	}
	// corto, sin mayúscula, sin dígito, sin símbolo, pocos únicos
	_, vs := p.Validate("aaa")
	want := map[string]bool{
		ViolationTooShort:      true,
		ViolationMissingUpper:  true,
		ViolationMissingNumber: true,
		ViolationMissingSymbol: true,
		ViolationFewUnique:     true,
	}
	if len(vs) != len(want) {
		t.Fatalf("violations = %v, want %d entries", vs, len(want))
	}
	for _, v := range vs {
		if !want[v] {
			t.Fatalf("unexpected violation %q in %v", v, vs)
		}
	}
}

func TestValidate_EachRuleIndependent(t *testing.T) {
	base := Policy{MinLength: 8, RequireUpper: true, RequireLower: true, RequireNumber: true, RequireSpecial: true}
	cases := []struct {
		name string
		pwd  string
		code string
	}{
		{"sin mayúscula", "abcdef12!", ViolationMissingUpper},
		{"sin minúscula", "ABCDEF12!", ViolationMissingLower},
		{"sin dígito", "Abcdefgh!", ViolationMissingNumber},
		{"sin símbolo", "Abcdefg12", ViolationMissingSymbol},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, vs := base.Validate(tc.pwd)
			if len(vs) != 1 || vs[0] != tc.code {
				t.Fatalf("got %v, want exactly [%s]", vs, tc.code)
			}
		})
	}
}

func TestCheckHistory(t *testing.T) {
	params := Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32} // barato para test
	old1, err := Hash(params, "OldPass123!")
	if err != nil {
		t.Fatal(err)
	}
	old2, err := Hash(params, "OlderPass456!")
	if err != nil {
		t.Fatal(err)
	}
	p := Policy{HistoryCount: 2}
	if !p.CheckHistory("OldPass123!", []string{old1, old2}) {
		t.Fatalf("expected reuse of old1 detected")
	}
	if !p.CheckHistory("OlderPass456!", []string{old1, old2}) {
		t.Fatalf("expected reuse of old2 detected")
	}
	if p.CheckHistory("FreshPass789!", []string{old1, old2}) {
		t.Fatalf("fresh password flagged as reused")
	}
	// HistoryCount limita cuántos hashes se consideran
	p2 := Policy{HistoryCount: 1}
	if p2.CheckHistory("OlderPass456!", []string{old1, old2}) {
		t.Fatalf("old2 is outside the history window, must not match")
	}
}

func TestHashVerify_RoundTrip(t *testing.T) {
	params := Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}
	phc, err := Hash(params, "s3cret-Pass!")
	if err != nil {
		t.Fatal(err)
	}
	if !Verify("s3cret-Pass!", phc) {
		t.Fatalf("verify failed for correct password")
	}
	if Verify("wrong-pass", phc) {
		t.Fatalf("verify accepted wrong password")
	}
	if Verify("s3cret-Pass!", "$argon2id$v=19$garbage") {
		t.Fatalf("verify accepted malformed PHC")
	}
}
