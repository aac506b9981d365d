package xcache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKey_Layout(t *testing.T) {
	tests := []struct {
		name string
		base string
		opts []KeyOption
		want string
	}{
		{"bare", "list", nil, "list"},
		{"prefix only", "list", []KeyOption{WithPrefix("u/42")}, "u/42:list"},
		{"params sorted by field", "list", []KeyOption{WithParams(Params{"page": 2, "limit": 20, "category": "go"})},
			"list:category=go&limit=20&page=2"},
		{"prefix and params", "list", []KeyOption{WithPrefix("p"), WithParams(Params{"a": "1"})}, "p:list:a=1"},
		{"nil omitted", "list", []KeyOption{WithParams(Params{"a": nil, "b": "x"})}, "list:b=x"},
		{"nil slice omitted", "list", []KeyOption{WithParams(Params{"tags": []string(nil)})}, "list"},
		{"empty slice kept", "list", []KeyOption{WithParams(Params{"tags": []string{}})}, "list:tags="},
		{"slice sorted", "list", []KeyOption{WithParams(Params{"sources": []string{"zenn", "qiita"}})}, "list:sources=qiita,zenn"},
		{"int slice", "list", []KeyOption{WithParams(Params{"ids": []int{3, 1, 2}})}, "list:ids=1,2,3"},
		{"bool", "list", []KeyOption{WithParams(Params{"fav": true})}, "list:fav=true"},
		{"merged params", "list", []KeyOption{WithParams(Params{"a": "1"}), WithParams(Params{"a": "2", "b": "3"})}, "list:a=2&b=3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateKey(tt.base, tt.opts...))
		})
	}
}

func TestGenerateKey_FieldOrderIndependent(t *testing.T) {
	a := GenerateKey("list", WithParams(Params{"sources": []string{"qiita", "zenn"}, "page": 1, "search": "go"}))
	b := GenerateKey("list", WithParams(Params{"search": "go", "page": 1, "sources": []string{"zenn", "qiita"}}))
	assert.Equal(t, a, b)
}

func TestGenerateKey_DistinctValues(t *testing.T) {
	base := Params{"sources": []string{"qiita"}, "page": 1, "limit": 20, "search": "go"}
	keys := map[string]bool{GenerateKey("list", WithParams(base)): true}

	variants := []Params{
		{"sources": []string{"zenn"}},
		{"page": 2},
		{"limit": 50},
		{"search": "rust"},
		{"tags": []string{"db"}},
		{"from": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, v := range variants {
		k := GenerateKey("list", WithParams(base), WithParams(v))
		assert.False(t, keys[k], "duplicate key %q", k)
		keys[k] = true
	}
}

func TestGenerateKey_EscapesSeparators(t *testing.T) {
	tests := []struct {
		name string
		a, b Params
	}{
		{"ampersand in value", Params{"search": "rust&tags=go"}, Params{"search": "rust", "tags": "go"}},
		{"equals in value", Params{"a": "1=b"}, Params{"a": "1", "b": ""}},
		{"comma in element", Params{"sources": []string{"qiita,zenn"}}, Params{"sources": []string{"qiita", "zenn"}}},
		{"comma in scalar", Params{"sources": "qiita,zenn"}, Params{"sources": []string{"qiita", "zenn"}}},
		{"separator in field name", Params{"x.lang=ja&page": "1"}, Params{"x.lang": "ja", "page": "1"}},
		{"colon in value", Params{"q": "a:b"}, Params{"q": "a", "b": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, GenerateKey("list", WithParams(tt.a)), GenerateKey("list", WithParams(tt.b)))
		})
	}

	assert.Equal(t, "list:search=rust%26tags%3Dgo", GenerateKey("list", WithParams(Params{"search": "rust&tags=go"})))
	assert.Equal(t, "list:sources=qiita%2Czenn", GenerateKey("list", WithParams(Params{"sources": []string{"qiita,zenn"}})))
	assert.Equal(t, "list:q=a+b", GenerateKey("list", WithParams(Params{"q": "a b"})))
}

func TestGenerateKey_Pointers(t *testing.T) {
	s := "go"
	var nilStr *string
	assert.Equal(t, "list:q=go", GenerateKey("list", WithParams(Params{"q": &s, "z": nilStr})))
}

func TestGenerateKey_Time(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))
	assert.Equal(t, "list:from=2024-03-01T00%3A00%3A00Z", GenerateKey("list", WithParams(Params{"from": ts})))
}

func TestGenerateKey_LongKeyHashed(t *testing.T) {
	long := strings.Repeat("x", 400)
	k := GenerateKey("list", WithParams(Params{"search": long}))
	assert.Len(t, k, DefaultMaxKeyLength)
	assert.True(t, strings.HasPrefix(k, "list:search=xxx"))
	assert.Equal(t, byte('#'), k[DefaultMaxKeyLength-hashSuffixLen])

	other := GenerateKey("list", WithParams(Params{"search": long + "y"}))
	assert.NotEqual(t, k, other)
	assert.Equal(t, k, GenerateKey("list", WithParams(Params{"search": long})))
}

func TestGenerateKey_Unlimited(t *testing.T) {
	long := strings.Repeat("x", 400)
	k := GenerateKey(long, WithKeyMaxLength(0))
	assert.Equal(t, long, k)
}

func TestShortenKey_TinyLimit(t *testing.T) {
	k := shortenKey("abcdefghijklmnopqrstuvwxyz", 5)
	assert.Len(t, k, hashSuffixLen)
	assert.Equal(t, byte('#'), k[0])
}

func TestShortenKey_KeepsPrefix(t *testing.T) {
	prefix := "articles:user:u/" + strings.Repeat("a", 300) + ":list:"
	tail := "limit=20&page=1&search=" + strings.Repeat("q", 40)
	k := shortenKey(prefix+tail, DefaultMaxKeyLength)
	assert.True(t, strings.HasPrefix(k, prefix))
	assert.Len(t, k, len(prefix)+hashSuffixLen)
	assert.NotEqual(t, k, shortenKey(prefix+tail+"q", DefaultMaxKeyLength))

	noGain := "p:" + strings.Repeat("b", 240) + ":x"
	assert.Equal(t, noGain+"yz", shortenKey(noGain+"yz", 240))
}

func FuzzGenerateKey(f *testing.F) {
	f.Add("list", "qiita", "zenn", "go")
	f.Add("", "", "", "")
	f.Add("list", "rust&tagMode=OR", "tags=go", "a,b")
	f.Fuzz(func(t *testing.T, base, a, b, c string) {
		k1 := GenerateKey(base, WithParams(Params{"s": []string{a, b}}))
		k2 := GenerateKey(base, WithParams(Params{"s": []string{b, a}}))
		if k1 != k2 {
			t.Fatalf("order dependent: %q vs %q", k1, k2)
		}
		if !strings.Contains(base, ":") && len(base) < DefaultMaxKeyLength-hashSuffixLen && len(k1) > DefaultMaxKeyLength {
			t.Fatalf("key too long: %d", len(k1))
		}

		unlimited := WithKeyMaxLength(0)
		joined := GenerateKey(base, WithParams(Params{"s": a + "," + b}), unlimited)
		split := GenerateKey(base, WithParams(Params{"s": []string{a, b}}), unlimited)
		if joined == split {
			t.Fatalf("scalar and slice collide: %q", joined)
		}
		one := GenerateKey(base, WithParams(Params{"s": a, "t": b}), unlimited)
		if a != c {
			other := GenerateKey(base, WithParams(Params{"s": c, "t": b}), unlimited)
			if one == other {
				t.Fatalf("distinct values collide: %q", one)
			}
		}
		injected := GenerateKey(base, WithParams(Params{"s": a + "&t=" + b}), unlimited)
		if injected == one {
			t.Fatalf("value injected a field: %q", injected)
		}
	})
}
