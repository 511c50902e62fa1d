package codegen

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/routlang/routc/internal/lexer"
	"github.com/routlang/routc/internal/optimizer"
	"github.com/routlang/routc/internal/parser"
	"github.com/routlang/routc/internal/semantic"
)

// generate runs the full pipeline — parse, check, optimize, lower —
// the way cmd/routc's compile command does, and returns the WAT text.
func generate(t *testing.T, src string) string {
	t.Helper()
	program, err := parser.New(lexer.New(src)).ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram() error = %v", err)
	}

	a := semantic.NewAnalyzer(src, "test.rout")
	if err := a.Analyze(program); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	optimized := optimizer.New().Optimize(program)

	out, err := New(a.Symbols()).Generate(optimized)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return out
}

func TestGenerateFoldedArithmeticPrint(t *testing.T) {
	snaps.MatchSnapshot(t, generate(t, `
routine main() is
  print 1 + 2 * 3;
end`))
}

func TestGenerateArraySum(t *testing.T) {
	snaps.MatchSnapshot(t, generate(t, `
routine sum(arr: array[] integer): integer is
  var s : integer is 0;
  for x in arr loop
    s := s + x;
  end
  return s;
end

routine main() is
  var a : array[4] integer is [2, 2, 2, 2];
  print sum(a);
end`))
}

func TestGenerateIfConditionEliminated(t *testing.T) {
	snaps.MatchSnapshot(t, generate(t, `
routine main() is
  if true then
    print 42;
  else
    print 0;
  end
end`))
}

func TestGenerateForRangeReverse(t *testing.T) {
	snaps.MatchSnapshot(t, generate(t, `
routine main() is
  for i in 5..1 reverse loop
    print i;
  end
end`))
}

func TestGenerateRecordFieldAccess(t *testing.T) {
	snaps.MatchSnapshot(t, generate(t, `
type point is record x : integer; y : integer; end

routine main() is
  var p : point is { x: 3, y: 4 };
  print p.x + p.y;
end`))
}

func TestGenerateRealArithmeticAndComparison(t *testing.T) {
	snaps.MatchSnapshot(t, generate(t, `
routine main() is
  var x : real is 1.5;
  var y : integer is 2;
  print x + y;
  print x < y;
end`))
}

func TestGenerateArraySizePseudoField(t *testing.T) {
	snaps.MatchSnapshot(t, generate(t, `
routine main() is
  var a : array[3] integer is [1, 2, 3];
  print a.size;
end`))
}

func TestGenerateStringLiteralsDeduplicate(t *testing.T) {
	snaps.MatchSnapshot(t, generate(t, `
routine main() is
  print "hello";
  print "hello";
  print "world";
end`))
}
