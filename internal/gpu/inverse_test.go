package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/ifft/internal/gpu/fftcompute"
)

const accuracyTolerance = 1e-5

func newEngines(t *testing.T, n, blocks int, opts ...Option) (*InverseEngine, *NormalizeEngine) {
	t.Helper()
	device, queue := newNoopDevice(t)

	a, b := newBufferPair(t, device, n, blocks)
	inv, err := NewInverseEngine(device, queue, a, b, n)
	if err != nil {
		t.Fatalf("NewInverseEngine failed: %v", err)
	}
	t.Cleanup(inv.Close)
	norm, err := NewNormalizeEngine(device, queue, a, b, n, opts...)
	if err != nil {
		t.Fatalf("NewNormalizeEngine failed: %v", err)
	}
	t.Cleanup(norm.Close)
	return inv, norm
}

func TestInverseEngineMatchesReference(t *testing.T) {
	for _, blocks := range []int{1, 10, 1280000 / 512} {
		inv, norm := newEngines(t, 512, blocks)
		input := randomSamples(512*blocks, uint64(blocks))

		want, err := fftcompute.ReferenceInverse(input, 512)
		if err != nil {
			t.Fatalf("reference failed: %v", err)
		}
		got := replay(inv, norm, input)
		if e := fftcompute.MaxAbsError(got, want); e >= accuracyTolerance {
			t.Errorf("blocks=%d: max error %g >= %g", blocks, e, accuracyTolerance)
		}
	}
}

func TestInverseEngineNormalizesOnce(t *testing.T) {
	inv, norm := newEngines(t, 512, 3)
	input := randomSamples(512*3, 42)

	ref, err := fftcompute.NewReference(512)
	if err != nil {
		t.Fatalf("NewReference failed: %v", err)
	}
	unscaled, err := ref.Inverse(nil, input, false)
	if err != nil {
		t.Fatalf("reference failed: %v", err)
	}
	for i := range unscaled {
		unscaled[i] /= 512
	}

	got := replay(inv, norm, input)
	if e := fftcompute.MaxAbsError(got, unscaled); e >= accuracyTolerance {
		t.Errorf("max error vs unscaled/N = %g", e)
	}
}

func TestInverseEngineConstantInput(t *testing.T) {
	inv, norm := newEngines(t, 512, 5)
	c := complex64(complex(2.1327392395, 3.033729))
	input := make([]complex64, 512*5)
	for i := range input {
		input[i] = c
	}

	got := replay(inv, norm, input)
	for blk := 0; blk < 5; blk++ {
		for i := 0; i < 512; i++ {
			want := complex64(0)
			if i == 0 {
				want = c
			}
			v := got[blk*512+i]
			if d := fftcompute.MaxAbsError([]complex64{v}, []complex64{want}); d >= accuracyTolerance {
				t.Fatalf("block %d sample %d = %v, want %v", blk, i, v, want)
			}
		}
	}
}

func TestInverseEngineScaleInvariance(t *testing.T) {
	inv, norm := newEngines(t, 512, 4)
	input := randomSamples(512*4, 7)
	const k = 3.5

	scaled := make([]complex64, len(input))
	for i, v := range input {
		scaled[i] = v * k
	}
	base := replay(inv, norm, input)
	got := replay(inv, norm, scaled)

	want := make([]complex64, len(base))
	for i, v := range base {
		want[i] = v * k
	}
	if e := fftcompute.MaxAbsError(got, want); e >= accuracyTolerance {
		t.Errorf("max error %g >= %g", e, accuracyTolerance)
	}
}

func TestInverseEngineRepeatable(t *testing.T) {
	inv, norm := newEngines(t, 512, 2)
	input := randomSamples(1024, 3)
	first := replay(inv, norm, input)
	second := replay(inv, norm, input)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestInverseEngineProc(t *testing.T) {
	device, queue := newNoopDevice(t)

	a, b := newBufferPair(t, device, 512, 2)
	inv, err := NewInverseEngine(device, queue, a, b, 512, WithLabel("proc"))
	if err != nil {
		t.Fatalf("NewInverseEngine failed: %v", err)
	}

	if inv.Stages() != 9 || inv.Length() != 512 || inv.Blocks() != 2 {
		t.Errorf("Stages/Length/Blocks = %d/%d/%d", inv.Stages(), inv.Length(), inv.Blocks())
	}
	if inv.ResultRole() != RoleB {
		t.Errorf("ResultRole() = %s, want B", inv.ResultRole())
	}

	enc := beginEncoder(t, device)
	defer enc.DiscardEncoding()

	for i := 0; i < 2; i++ {
		ref, err := inv.Proc(enc)
		if err != nil {
			t.Fatalf("Proc failed: %v", err)
		}
		if ref.Role != RoleB || ref.Buffer != b {
			t.Errorf("Proc returned %s/%s, want B/%s", ref.Role, ref.Buffer.Label(), b.Label())
		}
	}

	if _, err := inv.Proc(nil); !errors.Is(err, ErrNilEncoder) {
		t.Errorf("nil encoder error = %v", err)
	}
	inv.Close()
	inv.Close()
	if _, err := inv.Proc(enc); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("Proc after Close error = %v", err)
	}
}

func TestInverseEngineEvenStageCount(t *testing.T) {
	device, queue := newNoopDevice(t)

	a, b := newBufferPair(t, device, 256, 1)
	inv, err := NewInverseEngine(device, queue, a, b, 256)
	if err != nil {
		t.Fatalf("NewInverseEngine failed: %v", err)
	}
	defer inv.Close()

	enc := beginEncoder(t, device)
	defer enc.DiscardEncoding()
	ref, err := inv.Proc(enc)
	if err != nil {
		t.Fatalf("Proc failed: %v", err)
	}
	if ref.Role != RoleA || ref.Buffer != a {
		t.Errorf("8-stage result in %s, want A", ref.Role)
	}
}

func TestInverseEngineRejectsBadBuffers(t *testing.T) {
	device, queue := newNoopDevice(t)

	a, err := CreateComplexBuffer(device, "a", 1000)
	if err != nil {
		t.Fatalf("CreateComplexBuffer failed: %v", err)
	}
	defer a.Destroy()
	b, err := CreateComplexBuffer(device, "b", 1000)
	if err != nil {
		t.Fatalf("CreateComplexBuffer failed: %v", err)
	}
	defer b.Destroy()

	inv, err := NewInverseEngine(device, queue, a, b, 512)
	if !errors.Is(err, ErrInvalidBufferSize) {
		t.Errorf("error = %v, want ErrInvalidBufferSize", err)
	}
	if inv != nil {
		t.Error("a failed constructor returned an engine")
	}
}
