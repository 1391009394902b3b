package pirbuild_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scottcarroll/rir/dispatch"
	"github.com/scottcarroll/rir/pir"
	"github.com/scottcarroll/rir/pirbuild"
	"github.com/scottcarroll/rir/pool"
	"github.com/scottcarroll/rir/rir"
)

func newBuilder() *pirbuild.Builder {
	return pirbuild.NewBuilder(pool.New(), pirbuild.NewCache(16), nil)
}

func TestBuildStraightLine(t *testing.T) {
	p := pool.New()
	one := p.InternConstant(int64(1))
	two := p.InternConstant(int64(2))

	asm := rir.NewAssembler()
	asm.Emit(rir.OpPush, int32(one))
	asm.Emit(rir.OpPush, int32(two))
	asm.Emit(rir.OpAdd, 0)
	asm.Emit(rir.OpRet)
	code := rir.NewCode(1, asm.Bytes(), nil, nil, 4, 0, 0, 1)

	b := pirbuild.NewBuilder(p, pirbuild.NewCache(16), dispatch.NewRegistry())
	fn := dispatch.NewFunction(code, dispatch.Baseline(), dispatch.Signature{}, nil)
	cv, err := b.Build(fn, dispatch.Baseline())
	require.NoError(t, err)
	require.Len(t, cv.Blocks, 1)

	entry := cv.Block(cv.Entry)
	term, ok := entry.Terminator()
	require.True(t, ok)
	_, isReturn := term.(pir.Return)
	require.True(t, isReturn)
}

// TestBuildImplicitFallthrough exercises a block with no explicit branch
// or return of its own: the true-arm of an if-with-no-else simply runs out
// of instructions exactly where the join point's label was placed, so it
// falls through rather than jumping. RIR's interpreter treats this as
// ordinary sequential pc advancement (see interp.Frame.run); the builder
// must still synthesize the CFG edge and an entry for the join block.
func TestBuildImplicitFallthrough(t *testing.T) {
	p := pool.New()
	vCond := p.InternConstant(true)
	vA := p.InternConstant(int64(10))
	vB := p.InternConstant(int64(20))

	asm := rir.NewAssembler()
	asm.Emit(rir.OpPush, int32(vCond))
	skip := asm.NewLabel()
	asm.EmitJump(rir.OpBrFalse, skip) // block 0 ends here (terminator)
	asm.Emit(rir.OpPush, int32(vA))   // block 1 (true-arm): falls through, no terminator of its own
	asm.Emit(rir.OpPop)
	asm.Place(skip) // block 2: reached by both the jump and the fallthrough
	asm.Emit(rir.OpPush, int32(vB))
	asm.Emit(rir.OpRet)
	code := rir.NewCode(1, asm.Bytes(), nil, nil, 4, 0, 0, 0)

	b := pirbuild.NewBuilder(p, pirbuild.NewCache(16), dispatch.NewRegistry())
	fn := dispatch.NewFunction(code, dispatch.Baseline(), dispatch.Signature{}, nil)
	cv, err := b.Build(fn, dispatch.Baseline())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(cv.Blocks), 3)

	// every block must have an explicit terminator now, including the
	// fallthrough-only true-arm block, even though the source bytecode
	// never emitted one for it.
	for _, blk := range cv.Blocks {
		term, ok := blk.Terminator()
		require.True(t, ok, "block %d has no terminator", blk.ID())
		if _, isRet := term.(pir.Return); isRet {
			continue
		}
		require.NotEmpty(t, blk.Successors())
	}
}

func TestBuildLoopBackedge(t *testing.T) {
	p := pool.New()
	vStart := p.InternConstant(int64(0))

	asm := rir.NewAssembler()
	asm.Emit(rir.OpPush, int32(vStart))
	top := asm.NewLabel()
	asm.Place(top)
	asm.Emit(rir.OpDup)
	done := asm.NewLabel()
	asm.EmitJump(rir.OpBrTrue, done)
	asm.EmitJump(rir.OpBr, top)
	asm.Place(done)
	asm.Emit(rir.OpRet)
	code := rir.NewCode(1, asm.Bytes(), nil, nil, 4, 0, 0, 0)

	b := newBuilder()
	fn := dispatch.NewFunction(code, dispatch.Baseline(), dispatch.Signature{}, nil)
	cv, err := b.Build(fn, dispatch.Baseline())
	require.NoError(t, err)
	require.NotEmpty(t, cv.Blocks)
}
