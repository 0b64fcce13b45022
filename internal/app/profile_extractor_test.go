package app

import (
	"context"
	"testing"

	"childhood-friend/internal/model"
	"childhood-friend/internal/platform/logger"
)

func TestParseProfileFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{"empty object", "{}", map[string]string{}},
		{"garbage", "I could not find anything", nil},
		{"fenced", "```json\n{\"occupation\": \"nurse\"}\n```", map[string]string{"occupation": "nurse"}},
		{"unknown and nested dropped", `{"occupation":"dev","person_id":3,"hobby":{"a":1},"created_at":"x"}`, map[string]string{"occupation": "dev"}},
		{"nbti alias", `{"nbti":"ENFP"}`, map[string]string{"mbti": "ENFP"}},
		{"blank values dropped", `{"email":"  ","gender":"female"}`, map[string]string{"gender": "female"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := parseProfileFields(tc.raw)
			if len(got) != len(tc.want) {
				t.Fatalf("got=%v want=%v", got, tc.want)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Fatalf("%s: got=%q want=%q", k, got[k], v)
				}
			}
		})
	}
}

func TestExtractUpdatesPerson(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	person := &model.Person{Name: "Kim", DateOfBirth: "1990-05-10"}
	if err := env.persons.Create(ctx, person); err != nil {
		t.Fatalf("create person: %v", err)
	}

	llm := &fakeLLM{replies: []string{`{"occupation":"간호사","hometown":"부산"}`}}
	extractor := NewProfileExtractor(env.persons, llm, logger.Nop())

	n, err := extractor.Extract(ctx, model.ProfileExtractJob{PersonID: person.PersonID, Text: "저는 부산 출신 간호사예요"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if n != 2 {
		t.Fatalf("updated columns: got=%d want=2", n)
	}
	if !llm.opts[0].JSONObject {
		t.Fatalf("extraction must request a JSON object")
	}

	got, err := env.persons.GetByID(ctx, person.PersonID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %+v err=%v", got, err)
	}
	if got.Occupation != "간호사" || got.Hometown != "부산" {
		t.Fatalf("profile not updated: %+v", got)
	}
}

func TestExtractSkipsEmptyInput(t *testing.T) {
	env := newTestEnv(t)
	llm := &fakeLLM{replies: []string{`{"name":"x"}`}}
	extractor := NewProfileExtractor(env.persons, llm, logger.Nop())

	n, err := extractor.Extract(context.Background(), model.ProfileExtractJob{PersonID: 1, Text: "  "})
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if llm.callCount() != 0 {
		t.Fatalf("empty text must not reach the model")
	}
}
