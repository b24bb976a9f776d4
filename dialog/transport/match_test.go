package transport

import "testing"

func TestMatchRegexAgainstBodyText(t *testing.T) {
	ok, err := Match(MatchRegex, "shipped", []byte(`{"status":"shipped"}`))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !ok {
		t.Fatalf("expected the regex to match the body text")
	}

	ok, err = Match(MatchRegex, "delayed", []byte(`{"status":"shipped"}`))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if ok {
		t.Fatalf("expected the regex not to match")
	}
}

func TestMatchRegexInvalidPatternIsError(t *testing.T) {
	if _, err := Match(MatchRegex, "(unterminated", []byte("x")); err == nil {
		t.Fatalf("expected an error for an invalid regex")
	}
}

func TestMatchJSONPathIsExistenceBased(t *testing.T) {
	body := []byte(`{"shipped":true,"eta_days":2}`)

	ok, err := Match(MatchJSONPath, "shipped", body)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !ok {
		t.Fatalf("expected a present boolean-true field to match")
	}

	ok, err = Match(MatchJSONPath, "delayed", body)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if ok {
		t.Fatalf("expected a missing field not to match")
	}
}

func TestMatchJSONPathFalseAndEmptyStringDoNotMatch(t *testing.T) {
	body := []byte(`{"flag":false,"label":""}`)

	if ok, err := Match(MatchJSONPath, "flag", body); err != nil || ok {
		t.Fatalf("expected an explicit false value not to match, got ok=%v err=%v", ok, err)
	}
	if ok, err := Match(MatchJSONPath, "label", body); err != nil || ok {
		t.Fatalf("expected an empty string not to match, got ok=%v err=%v", ok, err)
	}
}

func TestMatchJSONPathNestedPath(t *testing.T) {
	body := []byte(`{"order":{"status":"shipped"}}`)
	ok, err := Match(MatchJSONPath, "order.status", body)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !ok {
		t.Fatalf("expected a nested non-empty string field to match")
	}
}

func TestMatchXPathSelectsElement(t *testing.T) {
	body := []byte(`<html><body><div class="status">shipped</div></body></html>`)
	ok, err := Match(MatchXPath, `//div[@class="status"]`, body)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !ok {
		t.Fatalf("expected the xpath to select the status div")
	}

	ok, err = Match(MatchXPath, `//div[@class="missing"]`, body)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if ok {
		t.Fatalf("expected no match for a class that isn't present")
	}
}

func TestMatchUnknownKindIsError(t *testing.T) {
	if _, err := Match(Matcher("bogus"), "x", []byte("x")); err == nil {
		t.Fatalf("expected an error for an unknown matcher kind")
	}
}
