package macro_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/g5becks/impex/internal/macro"
)

func TestResolveNestedMacros(t *testing.T) {
	tests := []struct {
		name  string
		decls [][2]string
		usage string
		want  string
	}{
		{
			name:  "plain value",
			decls: [][2]string{{"$a", "1"}},
			usage: "$a",
			want:  "1",
		},
		{
			name:  "prefix usage keeps suffix",
			decls: [][2]string{{"$a", "1"}, {"$b", "$a2"}},
			usage: "$b",
			want:  "12",
		},
		{
			name:  "adjacent usages concatenate",
			decls: [][2]string{{"$a", "1"}, {"$c", "2"}, {"$b", "$a$c"}},
			usage: "$b",
			want:  "12",
		},
		{
			name:  "exact name beats shorter prefix",
			decls: [][2]string{{"$ab", "x"}, {"$a", "1"}},
			usage: "$ab",
			want:  "x",
		},
		{
			name:  "longest prefix wins",
			decls: [][2]string{{"$cat", "c"}, {"$catalog", "Default"}},
			usage: "$catalog-id",
			want:  "Default-id",
		},
		{
			name:  "later declaration shadows earlier",
			decls: [][2]string{{"$v", "Staged"}, {"$v", "Online"}},
			usage: "$v",
			want:  "Online",
		},
		{
			name: "header fragment",
			decls: [][2]string{
				{"$catalog", "Default"},
				{"$version", "catalogVersion(catalog(id[default=$catalog]),version)[unique=true]"},
			},
			usage: "version",
			want:  "catalogVersion(catalog(id[default=Default]),version)[unique=true]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := macro.New()
			for i, d := range tt.decls {
				table.Declare(d[0], d[1], i*10)
			}

			got := table.Resolve(tt.usage, nil)
			if got.Value != tt.want {
				t.Fatalf("Resolve(%q).Value = %q, want %q", tt.usage, got.Value, tt.want)
			}
			if got.Status != macro.StatusResolved || !got.Clean() {
				t.Fatalf("Resolve(%q) = %+v, want clean resolution", tt.usage, got)
			}
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	table := macro.New()
	table.Declare("$a", "x$b", 0)
	table.Declare("$b", "y$missing", 1)

	first := table.Resolve("$a", nil)
	second := table.Resolve("$a", nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Resolve() not idempotent: %+v vs %+v", first, second)
	}
}

func TestResolveDigitUsageIsAMacro(t *testing.T) {
	table := macro.New()
	table.Declare("$a", "1", 0)
	table.Declare("$b", "$a$2", 1)

	got := table.Resolve("$b", nil)
	if got.Value != "1$2" {
		t.Fatalf("Resolve($b).Value = %q, want %q", got.Value, "1$2")
	}
	want := []macro.Issue{{Usage: "$2", Status: macro.StatusUnresolved}}
	if !reflect.DeepEqual(got.Issues, want) {
		t.Fatalf("Resolve($b).Issues = %+v, want %+v", got.Issues, want)
	}

	table.Declare("$2", "2", 2)
	if got := table.Resolve("$b", nil); got.Value != "12" || !got.Clean() {
		t.Fatalf("Resolve($b) after declaring $2 = %+v, want clean 12", got)
	}
}

func TestResolveSkipsQuotedStrings(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		clean bool
	}{
		{"double quoted", `"x$b"`, `"x$b"`, true},
		{"single quoted", `'x$b'`, `'x$b'`, true},
		{"doubled quote escape", `"x""$b"""`, `"x""$b"""`, true},
		{"after closing quote", `"x"$b`, `"x"2`, true},
		{"unknown inside quotes", `"x$missing"`, `"x$missing"`, true},
		{"unclosed quote", `"x$b`, `"x2`, true},
		{"unknown after quotes", `"x"$missing`, `"x"$missing`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := macro.New()
			table.Declare("$b", "2", 0)
			table.Declare("$a", tt.raw, 1)

			got := table.Resolve("$a", nil)
			if got.Value != tt.want {
				t.Fatalf("Resolve($a).Value = %q, want %q", got.Value, tt.want)
			}
			if got.Clean() != tt.clean {
				t.Fatalf("Resolve($a).Clean() = %v, want %v: %v", got.Clean(), tt.clean, got.Issues)
			}
		})
	}
}

func TestResolveCyclesTerminate(t *testing.T) {
	tests := []struct {
		name  string
		decls [][2]string
		usage string
		want  string
	}{
		{"self reference", [][2]string{{"$a", "$a"}}, "$a", "$a"},
		{"two step", [][2]string{{"$a", "x$b"}, {"$b", "y$a"}}, "$a", "xy$a"},
		{"three step", [][2]string{{"$a", "$b"}, {"$b", "$c"}, {"$c", "$a"}}, "$b", "$b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := macro.New()
			for i, d := range tt.decls {
				table.Declare(d[0], d[1], i)
			}

			got := table.Resolve(tt.usage, nil)
			if got.Value != tt.want {
				t.Fatalf("Resolve(%q).Value = %q, want %q", tt.usage, got.Value, tt.want)
			}
			if !hasIssue(got, macro.StatusCycle) {
				t.Fatalf("Resolve(%q).Issues = %v, want a cycle", tt.usage, got.Issues)
			}
			if got.Status != macro.StatusCycle {
				t.Fatalf("Resolve(%q).Status = %v, want cycle", tt.usage, got.Status)
			}
			if got.Clean() {
				t.Fatalf("Resolve(%q).Clean() = true, want false", tt.usage)
			}
		})
	}
}

func TestResolveVisitedSetIsReleased(t *testing.T) {
	table := macro.New()
	table.Declare("$a", "1", 0)
	table.Declare("$b", "$a$a", 1)

	got := table.Resolve("$b", nil)
	if got.Value != "11" || len(got.Issues) != 0 {
		t.Fatalf("Resolve($b) = %+v, want 11 without issues", got)
	}
}

func TestResolveDepthCap(t *testing.T) {
	table := macro.New(macro.WithMaxDepth(3))
	const chain = 10
	for i := range chain {
		table.Declare(fmt.Sprintf("$m%d", i), fmt.Sprintf("$m%d", i+1), i)
	}
	table.Declare(fmt.Sprintf("$m%d", chain), "end", chain)

	got := table.Resolve("$m0", nil)
	if !hasIssue(got, macro.StatusTooDeep) || got.Status != macro.StatusTooDeep {
		t.Fatalf("Resolve($m0) = %v %v, want too-deep", got.Status, got.Issues)
	}

	deep := macro.New()
	for i := range chain {
		deep.Declare(fmt.Sprintf("$m%d", i), fmt.Sprintf("$m%d", i+1), i)
	}
	deep.Declare(fmt.Sprintf("$m%d", chain), "end", chain)
	if got := deep.Resolve("$m0", nil); got.Value != "end" {
		t.Fatalf("Resolve($m0).Value = %q, want %q", got.Value, "end")
	}
}

func TestResolveConfigProperties(t *testing.T) {
	config := macro.MapResolver{"site.uid": "electronics", "lang": "en"}
	table := macro.New(macro.WithConfig(config))
	table.Declare("$site", "$config-site.uid", 0)

	tests := []struct {
		usage  string
		value  string
		status macro.Status
	}{
		{"$config-", "", macro.StatusEmpty},
		{"$config-site.uid", "electronics", macro.StatusResolved},
		{"$config-missing.key", "$config-missing.key", macro.StatusDeferred},
		{"$site", "electronics", macro.StatusResolved},
		{"$lang", "en", macro.StatusResolved},
		{"$unknown", "$unknown", macro.StatusUnresolved},
	}

	for _, tt := range tests {
		t.Run(tt.usage, func(t *testing.T) {
			got := table.Resolve(tt.usage, nil)
			if got.Value != tt.value || got.Status != tt.status {
				t.Fatalf("Resolve(%q) = (%q, %v), want (%q, %v)", tt.usage, got.Value, got.Status, tt.value, tt.status)
			}
		})
	}
}

func TestResolveWithoutConfigDefers(t *testing.T) {
	got := macro.New().Resolve("$config-a.b", nil)
	if got.Status != macro.StatusDeferred || got.Value != "$config-a.b" {
		t.Fatalf("Resolve() = %+v, want deferred marker", got)
	}
	if !got.Clean() {
		t.Fatalf("Clean() = false, want true for deferred config property")
	}
}

func TestResolveAtSeesDeclarationsAbove(t *testing.T) {
	table := macro.New()
	table.Declare("$cv", "Staged", 0)
	table.Declare("$cv", "$cv-Online", 100)

	tests := []struct {
		offset int
		want   string
		status macro.Status
	}{
		{0, "$cv", macro.StatusUnresolved},
		{50, "Staged", macro.StatusResolved},
		{150, "Staged-Online", macro.StatusResolved},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.offset), func(t *testing.T) {
			got := table.ResolveAt("$cv", tt.offset, nil)
			if got.Value != tt.want || got.Status != tt.status {
				t.Fatalf("ResolveAt($cv, %d) = (%q, %v), want (%q, %v)", tt.offset, got.Value, got.Status, tt.want, tt.status)
			}
		})
	}

	if got := table.Resolve("$cv", nil); !hasIssue(got, macro.StatusCycle) {
		t.Fatalf("Resolve($cv).Issues = %v, want a cycle for the latest-wins lookup", got.Issues)
	}
}

func TestResolveText(t *testing.T) {
	table := macro.New()
	table.Declare("$lang", "en", 0)

	got := table.ResolveText("name[lang=$lang];$nope", 10)
	if got.Value != "name[lang=en];$nope" {
		t.Fatalf("ResolveText().Value = %q", got.Value)
	}
	if len(got.Issues) != 1 || got.Issues[0].Status != macro.StatusUnresolved {
		t.Fatalf("ResolveText().Issues = %v, want one unresolved usage", got.Issues)
	}
}

func TestEscapeName(t *testing.T) {
	if got := macro.EscapeName("$na\\\nme"); got != "$name" {
		t.Fatalf("EscapeName() = %q, want %q", got, "$name")
	}

	table := macro.New()
	table.Declare("$na\\\nme", "v", 0)
	if got := table.Resolve("$name", nil); got.Value != "v" {
		t.Fatalf("Resolve($name).Value = %q, want %q", got.Value, "v")
	}
}

func TestSnapshotKeepsLatestPerName(t *testing.T) {
	table := macro.New()
	table.Declare("$a", "1", 0)
	table.Declare("$b", "2", 5)
	table.Declare("$a", "3", 10)

	got := table.Snapshot()
	if len(got) != 2 {
		t.Fatalf("Snapshot() len = %d, want 2", len(got))
	}
	if got[0].Name != "$b" || got[1].Name != "$a" || got[1].Raw != "3" {
		t.Fatalf("Snapshot() = %+v", got)
	}
	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}
}

func hasIssue(r macro.Result, status macro.Status) bool {
	for _, issue := range r.Issues {
		if issue.Status == status {
			return true
		}
	}
	return false
}
