package plyfin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dekarrin/plyfin/cache/inmem"
	"github.com/dekarrin/plyfin/plyerr"
	"github.com/dekarrin/plyfin/stree"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func noFilter() Options {
	opts := DefaultOptions()
	opts.AutoFilterTokens = false
	return opts
}

func heads(t *stree.Tree) string {
	var sb strings.Builder
	for _, sub := range t.Subtrees() {
		sb.WriteString(sub.Head)
	}
	return sb.String()
}

func Test_Grammar_Parse(t *testing.T) {
	testCases := []struct {
		name    string
		grammar string
		opts    Options
		input   string
		expect  string
	}{
		{
			name:    "longest match wins",
			grammar: `start: B A; B: '12'; A: '1';`,
			opts:    noFilter(),
			input:   "121",
			expect:  `start("12", "1")`,
		},
		{
			name:    "self-expanding list with one item",
			grammar: `start: list; ?list: item+; item: A; A: 'a';`,
			opts:    DefaultOptions(),
			input:   "a",
			expect:  `start(item("a"))`,
		},
		{
			name:    "self-expanding list with two items",
			grammar: `start: list; ?list: item+; item: A; A: 'a';`,
			opts:    DefaultOptions(),
			input:   "aa",
			expect:  `start(list(item("a"), item("a")))`,
		},
		{
			name:    "star matches nothing",
			grammar: `start: A*; A: 'a';`,
			opts:    noFilter(),
			input:   "",
			expect:  `start()`,
		},
		{
			name:    "star matches many",
			grammar: `start: A*; A: 'a';`,
			opts:    noFilter(),
			input:   "aaaa",
			expect:  `start("a", "a", "a", "a")`,
		},
		{
			name:    "punctuation is filtered",
			grammar: `start: '\(' item (',' item)* '\)'; item: A; A: 'a'; WS: '[ ]+' (%ignore);`,
			opts:    DefaultOptions(),
			input:   "(a, a ,a)",
			expect:  `start(item("a"), item("a"), item("a"))`,
		},
		{
			name:    "expanded rule is spliced",
			grammar: `start: pair pair; @pair: A B; A: 'a'; B: 'b';`,
			opts:    noFilter(),
			input:   "abab",
			expect:  `start("a", "b", "a", "b")`,
		},
		{
			name:    "flatten only inside itself",
			grammar: `start: list; #list: item | list item; item: A; A: 'a';`,
			opts:    DefaultOptions(),
			input:   "aaa",
			expect:  `start(list(item("a"), item("a"), item("a")))`,
		},
		{
			name:    "empty trees kept",
			grammar: `start: e B; e: ; B: 'b';`,
			opts:    DefaultOptions(),
			input:   "b",
			expect:  `start(e())`,
		},
		{
			name:    "empty trees dropped",
			grammar: `start: e B; e: ; B: 'b';`,
			opts:    Options{AutoFilterTokens: true, KeepEmptyTrees: false},
			input:   "b",
			expect:  `start()`,
		},
		{
			name:    "subgrammar",
			grammar: `start: S; S: '"[^"]*"' { start: Q w+ Q; w: W; Q: '"'; W: '[a-z]+'; SP: ' ' (%ignore); };`,
			opts:    DefaultOptions(),
			input:   `"ab cd"`,
			expect:  `start(start(w("ab"), w("cd")))`,
		},
		{
			name:    "keyword from unless",
			grammar: `start: word+; word: NAME | IF; NAME: '[a-z]+' (%unless IF: 'if';); WS: '[ ]+' (%ignore);`,
			opts:    DefaultOptions(),
			input:   "if iffy",
			expect:  `start(word("if"), word("iffy"))`,
		},
		{
			name:    "composed token",
			grammar: `start: NUM; NUM: DIGITS '\.' DIGITS; %fragment DIGITS: '[0-9]+';`,
			opts:    DefaultOptions(),
			input:   "3.14",
			expect:  `start("3.14")`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			g, err := Compile(tc.grammar, tc.opts)
			if !assert.NoError(err) {
				return
			}

			actual, err := g.Parse(tc.input)

			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expect, actual.Compact())
		})
	}
}

func Test_Grammar_Parse_repetitionWithLiteral(t *testing.T) {
	g, err := Compile(`start: a+ b a+? 'b' a*; b: 'b'; a: 'a';`, DefaultOptions())
	require.NoError(t, err)

	testCases := []struct {
		input     string
		expect    string
		expectErr bool
	}{
		{input: "aaabaab", expect: "aaabaa"},
		{input: "aaabaaba", expect: "aaabaaa"},
		{input: "aaabaa", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := g.Parse(tc.input)

			if tc.expectErr {
				var pErr *plyerr.ParseError
				assert.True(errors.As(err, &pErr), "error was: %v", err)
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expect, heads(actual))
		})
	}
}

func Test_Grammar_Parse_longExpandedRecursion(t *testing.T) {
	assert := assert.New(t)
	g, err := Compile(`@start: a | start a; a: A; A: 'a';`, DefaultOptions())
	require.NoError(t, err)

	const count = 20000
	actual, err := g.Parse(strings.Repeat("a", count))

	require.NoError(t, err)
	assert.Equal("start", actual.Head)
	assert.Len(actual.Tail, count)
	for _, sub := range actual.Tail {
		if !assert.Equal("a", sub.(*stree.Tree).Head) {
			break
		}
	}
}

func Test_Grammar_Parse_repetitionScalesLinearly(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	testCases := []struct {
		name    string
		grammar string
	}{
		{name: "left-recursive expand", grammar: `@start: a | start a; a: A; A: 'a';`},
		{name: "star operator", grammar: `start: a*; a: A; A: 'a';`},
		{name: "plus operator", grammar: `start: a+; a: A; A: 'a';`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := Compile(tc.grammar, DefaultOptions())
			require.NoError(t, err)

			// best of three runs keeps GC pauses out of the comparison
			timeParse := func(n int) time.Duration {
				input := strings.Repeat("a", n)
				var best time.Duration
				for i := 0; i < 3; i++ {
					start := time.Now()
					tree, err := g.Parse(input)
					elapsed := time.Since(start)
					require.NoError(t, err)
					require.Len(t, tree.Tail, n)
					if i == 0 || elapsed < best {
						best = elapsed
					}
				}
				return best
			}

			small := timeParse(25000)
			large := timeParse(100000)

			// 4x the input; a quadratic parse would take around 16x as long
			assert.Less(t, large, small*10, "25k: %s, 100k: %s", small, large)
			assert.Less(t, large, 10*time.Second)
		})
	}
}

func Test_Grammar_Parse_flattenFiltersTakenOverSingleToken(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "one match", input: "a", expect: `start(r("a"))`},
		{name: "single token joined by another", input: "ab", expect: `start(r())`},
		{name: "empty tail joined by one token", input: "abb", expect: `start(r("b"))`},
		{name: "longer chain", input: "abbb", expect: `start(r())`},
	}

	g, err := Compile(`start: r; #r: A | r B; A: 'a'; B: 'b';`, DefaultOptions())
	require.NoError(t, err)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := g.Parse(tc.input)

			require.NoError(t, err)
			assert.Equal(tc.expect, actual.Compact())
		})
	}
}

func Test_Grammar_Parse_expandedSingleChild(t *testing.T) {
	assert := assert.New(t)
	g, err := Compile(`start: x B; @x: y; y: A; A: 'a'; B: 'b';`, DefaultOptions())
	require.NoError(t, err)

	actual, err := g.Parse("ab")

	require.NoError(t, err)
	assert.Empty(actual.Select("x"))
	assert.Equal(`start(y("a"))`, actual.Compact())
}

func Test_Grammar_Parse_permutationCompleteness(t *testing.T) {
	g, err := Compile(`start: A ^ B ^ C; A: 'a'; B: 'b'; C: 'c';`, DefaultOptions())
	require.NoError(t, err)

	accepted := []string{"abc", "acb", "bac", "bca", "cab", "cba"}
	rejected := []string{"ab", "aab", "abcc", "abca", ""}

	for _, input := range accepted {
		t.Run("accepts "+input, func(t *testing.T) {
			_, err := g.Parse(input)
			assert.NoError(t, err)
		})
	}
	for _, input := range rejected {
		t.Run("rejects "+input, func(t *testing.T) {
			_, err := g.Parse(input)
			assert.Error(t, err)
		})
	}
}

func Test_Grammar_Parse_errors(t *testing.T) {
	assert := assert.New(t)
	g, err := Compile(`start: item+; item: A B; A: 'a'; B: 'b'; WS: '[ ]+' (%ignore); NL: '\n' (%ignore) (%newline);`, DefaultOptions())
	require.NoError(t, err)

	_, err = g.Parse("ab\n ab x")
	var tErr *plyerr.TokenizeError
	if assert.True(errors.As(err, &tErr), "error was: %v", err) {
		assert.Equal('x', tErr.Char)
		assert.Equal(2, tErr.Line)
		assert.Equal(5, tErr.Column)
	}

	_, err = g.Parse("ab\nbb")
	var pErr *plyerr.ParseError
	if assert.True(errors.As(err, &pErr), "error was: %v", err) {
		first := pErr.First()
		assert.Equal("b", first.Token.Value)
		assert.Equal(2, first.Token.Line)
		assert.Equal(1, first.Token.Column)
	}
}

func Test_Grammar_postprocessIdempotent(t *testing.T) {
	grammars := []struct {
		src   string
		input string
	}{
		{src: `start: list; #list: item | list item; item: A; A: 'a';`, input: "aaaa"},
		{src: `start: pair+; @pair: A B; A: 'a'; B: 'b';`, input: "ababab"},
		{src: `start: e B e; e: ; B: 'b';`, input: "b"},
	}

	for _, gs := range grammars {
		t.Run(gs.src, func(t *testing.T) {
			assert := assert.New(t)
			g, err := Compile(gs.src, Options{AutoFilterTokens: true, KeepEmptyTrees: false})
			require.NoError(t, err)

			once, err := g.Parse(gs.input)
			require.NoError(t, err)
			twice := once.Copy()
			g.postprocess(twice)

			assert.True(once.Equal(twice), "once: %s\ntwice: %s", once.Compact(), twice.Compact())
		})
	}
}

func Test_Grammar_deterministic(t *testing.T) {
	assert := assert.New(t)
	src := `start: stmt+; ?stmt: NAME '=' expr ';'; ?expr: expr '\+' term | term; ?term: NAME | NUM | '\(' expr '\)';
NAME: '[a-z]+'; NUM: '[0-9]+'; WS: '[ \n]+' (%ignore) (%newline);`
	input := "a = 1 + b;\nc = (a + 2) + 3;"

	first, err := Compile(src, DefaultOptions())
	require.NoError(t, err)
	second, err := Compile(src, DefaultOptions())
	require.NoError(t, err)

	tree1, err := first.Parse(input)
	require.NoError(t, err)
	tree2, err := second.Parse(input)
	require.NoError(t, err)

	assert.True(tree1.Equal(tree2))
	assert.Equal(first.TableString(), second.TableString())
	assert.Equal(tree1.Hash(), tree2.Hash())
}

func Test_Grammar_concurrentParse(t *testing.T) {
	assert := assert.New(t)
	g, err := Compile(`start: item+; item: A | B; A: 'a'; B: 'b';`, DefaultOptions())
	require.NoError(t, err)

	inputs := []string{"ab", "ba", "aaa", "babab"}
	results := make([]string, 40)

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tree, err := g.Parse(inputs[i%len(inputs)])
			if err != nil {
				results[i] = err.Error()
				return
			}
			results[i] = tree.Compact()
		}(i)
	}
	wg.Wait()

	for i := range results {
		expect, err := g.Parse(inputs[i%len(inputs)])
		require.NoError(t, err)
		assert.Equal(expect.Compact(), results[i])
	}
}

func Test_Grammar_Lex(t *testing.T) {
	assert := assert.New(t)
	g, err := Compile(`start: word+; word: NAME | IF; NAME: '[a-z]+' (%unless IF: 'if';); WS: '[ ]+' (%ignore);`, DefaultOptions())
	require.NoError(t, err)

	toks, err := g.Lex("if iffy")

	require.NoError(t, err)
	if assert.Len(toks, 2) {
		assert.Equal("IF", toks[0].Type)
		assert.Equal("NAME", toks[1].Type)
		assert.Equal(4, toks[1].Column)
	}
}

func Test_Grammar_Warnings(t *testing.T) {
	assert := assert.New(t)
	g, err := Compile(`start: stmt; stmt: IF stmt | IF stmt ELSE stmt | X; IF: 'if'; ELSE: 'else'; X: 'x'; WS: '[ ]+' (%ignore);`, DefaultOptions())
	require.NoError(t, err)

	assert.NotEmpty(g.Warnings())

	tree, err := g.Parse("if if x else x")
	require.NoError(t, err)
	// else binds to the nearest if
	assert.Equal(`start(stmt(stmt(stmt("x"), stmt("x"))))`, tree.Compact())
}

func Test_Grammar_RegisterTraceListener(t *testing.T) {
	assert := assert.New(t)
	g, err := Compile(`start: A; A: 'a';`, DefaultOptions())
	require.NoError(t, err)

	var lines []string
	g.RegisterTraceListener(func(s string) {
		lines = append(lines, s)
	})
	_, err = g.Parse("a")

	assert.NoError(err)
	assert.Contains(lines, "Action: ACCEPT")
}

func Test_Compile_errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "syntax", src: `start A;`},
		{name: "undefined", src: `start: B;`},
		{name: "bad regex", src: `start: A; A: '[a-';`},
		{name: "reduce/reduce", src: `start: a | b; a: X; b: X; X: 'x';`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.src, DefaultOptions())

			var gErr *plyerr.GrammarError
			assert.True(t, errors.As(err, &gErr), "error was: %v", err)
		})
	}
}

func Test_MustCompile(t *testing.T) {
	assert := assert.New(t)

	assert.Panics(func() { MustCompile(`start: B;`, DefaultOptions()) })
	assert.NotPanics(func() { MustCompile(`start: B; B: 'b';`, DefaultOptions()) })
}

func Test_Grammar_binaryRoundTrip(t *testing.T) {
	assert := assert.New(t)
	src := `start: (S | NAME | IF)+; S: '"[^"]*"' { start: W+; W: '[a-z]+'; SP: ' ' (%ignore); }; NAME: '[a-z]+' (%unless IF: 'if';); WS: '[ ]+' (%ignore);
### notes`
	input := `if "ab cd" x`

	orig, err := Compile(src, noFilter())
	require.NoError(t, err)
	data, err := orig.MarshalBinary()
	require.NoError(t, err)

	decoded := &Grammar{}
	err = decoded.UnmarshalBinary(data)
	require.NoError(t, err)

	assert.Equal(orig.Rules(), decoded.Rules())
	assert.Equal(orig.Tokens(), decoded.Tokens())
	assert.Equal(orig.Options(), decoded.Options())
	assert.Equal(orig.TableString(), decoded.TableString())
	assert.Equal("### notes", decoded.Section())
	assert.NotNil(decoded.Subgrammar("S"))

	expect, err := orig.Parse(input)
	require.NoError(t, err)
	actual, err := decoded.Parse(input)
	require.NoError(t, err)
	assert.Equal(expect.Compact(), actual.Compact())
}

func Test_Grammar_UnmarshalBinary_bad(t *testing.T) {
	assert := assert.New(t)
	g := MustCompile(`start: A; A: 'a';`, DefaultOptions())
	data, err := g.MarshalBinary()
	require.NoError(t, err)

	assert.Error((&Grammar{}).UnmarshalBinary(data[:len(data)/2]))
	assert.Error((&Grammar{}).UnmarshalBinary([]byte("not a grammar")))
}

func Test_CompileCached(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	c := inmem.New()
	src := `start: A+; A: 'a';`

	first, err := CompileCached(ctx, src, noFilter(), c)
	require.NoError(t, err)
	assert.Equal(1, c.Len())

	second, err := CompileCached(ctx, src, noFilter(), c)
	require.NoError(t, err)
	assert.Equal(1, c.Len())

	tree1, err := first.Parse("aaa")
	require.NoError(t, err)
	tree2, err := second.Parse("aaa")
	require.NoError(t, err)
	assert.True(tree1.Equal(tree2))

	// other options are another entry
	_, err = CompileCached(ctx, src, DefaultOptions(), c)
	require.NoError(t, err)
	assert.Equal(2, c.Len())
}

func Test_CompileCached_corruptEntry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	c := inmem.New()
	src := `start: A; A: 'a';`

	require.NoError(t, c.Put(ctx, CacheKey(src, DefaultOptions()), []byte{1, 2, 3}))

	g, err := CompileCached(ctx, src, DefaultOptions(), c)
	require.NoError(t, err)
	_, err = g.Parse("a")
	assert.NoError(err)

	data, err := c.Get(ctx, CacheKey(src, DefaultOptions()))
	require.NoError(t, err)
	assert.NoError((&Grammar{}).UnmarshalBinary(data))
}

func Test_CompileCached_nilCache(t *testing.T) {
	g, err := CompileCached(context.Background(), `start: A; A: 'a';`, DefaultOptions(), nil)

	assert.NoError(t, err)
	assert.NotNil(t, g)
}

func Test_UnmarshalOptions(t *testing.T) {
	testCases := []struct {
		name      string
		data      string
		expect    Options
		expectErr bool
	}{
		{
			name:   "empty keeps base",
			data:   ``,
			expect: DefaultOptions(),
		},
		{
			name:   "both set",
			data:   "auto_filter_tokens = false\nkeep_empty_trees = false\n",
			expect: Options{},
		},
		{
			name:   "one set",
			data:   "keep_empty_trees = false\n",
			expect: Options{AutoFilterTokens: true},
		},
		{
			name:      "unknown key",
			data:      "keep_trees = false\n",
			expectErr: true,
		},
		{
			name:      "wrong type",
			data:      "keep_empty_trees = 3\n",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := UnmarshalOptions([]byte(tc.data), DefaultOptions())

			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_LoadOptionsFile(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "opts.toml")
	require.NoError(t, os.WriteFile(path, []byte("auto_filter_tokens = false\n"), 0644))

	opts, err := LoadOptionsFile(path)

	assert.NoError(err)
	assert.Equal(Options{AutoFilterTokens: false, KeepEmptyTrees: true}, opts)

	_, err = LoadOptionsFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(err)
}
