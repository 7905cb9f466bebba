package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cohort/internal/instance"
)

var props = instance.Properties{
	"qualifiedName": instance.StringValue("db://sales/orders"),
	"tableCount":    instance.IntValue(12),
	"compressed":    instance.BooleanValue(false),
}

func TestMatch_Leaves(t *testing.T) {
	tests := []struct {
		name string
		pred Predicate
		want bool
	}{
		{"nil matches all", nil, true},
		{"equals string", Equals{Property: "qualifiedName", Value: instance.StringValue("db://sales/orders")}, true},
		{"equals wrong value", Equals{Property: "qualifiedName", Value: instance.StringValue("other")}, false},
		{"equals category matters", Equals{Property: "tableCount", Value: instance.LongValue(12)}, false},
		{"equals int", &Equals{Property: "tableCount", Value: instance.IntValue(12)}, true},
		{"equals missing property", Equals{Property: "owner", Value: instance.StringValue("x")}, false},
		{"prefix", Prefix{Property: "qualifiedName", Value: "db://sales/"}, true},
		{"prefix no match", Prefix{Property: "qualifiedName", Value: "file://"}, false},
		{"prefix on non-string", Prefix{Property: "tableCount", Value: "1"}, false},
		{"exists", Exists{Property: "compressed"}, true},
		{"exists missing", &Exists{Property: "owner"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pred, props))
		})
	}
}

func TestMatch_Combinators(t *testing.T) {
	yes := Exists{Property: "compressed"}
	no := Exists{Property: "owner"}

	assert.True(t, Match(And{}, props), "empty and is true")
	assert.False(t, Match(Or{}, props), "empty or is false")
	assert.True(t, Match(And{Predicates: []Predicate{yes, yes}}, props))
	assert.False(t, Match(And{Predicates: []Predicate{yes, no}}, props))
	assert.True(t, Match(Or{Predicates: []Predicate{no, yes}}, props))
	assert.False(t, Match(&Or{Predicates: []Predicate{no, no}}, props))
	assert.True(t, Match(Not{Predicate: no}, props))
	assert.False(t, Match(&Not{Predicate: yes}, props))
}

func TestFromProperties(t *testing.T) {
	match := instance.Properties{
		"qualifiedName": instance.StringValue("db://sales/orders"),
		"tableCount":    instance.IntValue(99),
	}

	assert.Nil(t, FromProperties(nil, MatchAll))
	assert.False(t, Match(FromProperties(match, MatchAll), props))
	assert.True(t, Match(FromProperties(match, MatchAny), props))
	assert.False(t, Match(FromProperties(match, MatchNone), props))

	unrelated := instance.Properties{"owner": instance.StringValue("nobody")}
	assert.True(t, Match(FromProperties(unrelated, MatchNone), props))
}

func TestFromProperties_CanonicalOrder(t *testing.T) {
	p := FromProperties(instance.Properties{
		"b": instance.IntValue(2),
		"a": instance.IntValue(1),
	}, MatchAll)
	and, ok := p.(And)
	require.True(t, ok)
	require.Len(t, and.Predicates, 2)
	assert.Equal(t, "a", and.Predicates[0].(Equals).Property)
	assert.Equal(t, "b", and.Predicates[1].(Equals).Property)
}

func TestParseMatchMode(t *testing.T) {
	for _, m := range []MatchMode{MatchAll, MatchAny, MatchNone} {
		got, err := ParseMatchMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMatchMode("most")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	ok := Validate(And{Predicates: []Predicate{
		Equals{Property: "a", Value: instance.IntValue(1)},
		Not{Predicate: Exists{Property: "b"}},
	}})
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Problems)

	assert.True(t, Validate(nil).Valid)

	bad := Validate(And{Predicates: []Predicate{
		Equals{Property: "", Value: instance.IntValue(1)},
		Or{},
		Not{},
		Prefix{Value: "x"},
	}})
	assert.False(t, bad.Valid)
	require.Len(t, bad.Problems, 4)
	assert.Equal(t, "and[0]: equals: empty property name", bad.Problems[0])
	assert.Contains(t, bad.Problems[1], "and[1]: or: no alternatives")
	assert.Contains(t, bad.Problems[2], "and[2]: not: nil operand")
	assert.Contains(t, bad.Problems[3], "and[3]: prefix: empty property name")
}

func TestValidate_NilValue(t *testing.T) {
	res := Validate(Equals{Property: "a"})
	assert.False(t, res.Valid)
	assert.Equal(t, []string{`equals "a": nil value`}, res.Problems)
}

func TestDescribe(t *testing.T) {
	p := And{Predicates: []Predicate{
		Equals{Property: "qualifiedName", Value: instance.StringValue("x")},
		Or{Predicates: []Predicate{
			Exists{Property: "owner"},
			Not{Predicate: Prefix{Property: "name", Value: "tmp"}},
		}},
	}}
	assert.Equal(t, `(qualifiedName = "x" AND (owner EXISTS OR NOT name STARTS WITH "tmp"))`, Describe(p))
	assert.Equal(t, "TRUE", Describe(nil))
	assert.Equal(t, "FALSE", Describe(Or{}))
	assert.Equal(t, "count = 3", Describe(Equals{Property: "count", Value: instance.IntValue(3)}))
}
