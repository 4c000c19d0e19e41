package gpu

import (
	"errors"
	"testing"
	"time"
)

func TestTransferRoundTrip(t *testing.T) {
	device, queue := newNoopDevice(t)

	const n, blocks = 512, 2
	a, b := newBufferPair(t, device, n, blocks)
	inv, err := NewInverseEngine(device, queue, a, b, n)
	if err != nil {
		t.Fatalf("NewInverseEngine failed: %v", err)
	}
	defer inv.Close()
	norm, err := NewNormalizeEngine(device, queue, a, b, n)
	if err != nil {
		t.Fatalf("NewNormalizeEngine failed: %v", err)
	}
	defer norm.Close()
	tr, err := NewTransfer(device, queue, "test", n*blocks, time.Second)
	if err != nil {
		t.Fatalf("NewTransfer failed: %v", err)
	}
	defer tr.Close()

	for iter := 0; iter < 2; iter++ {
		if err := a.Write(queue, randomSamples(n*blocks, uint64(iter))); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		enc := beginEncoder(t, device)
		if _, err := inv.Proc(enc); err != nil {
			t.Fatalf("inverse Proc failed: %v", err)
		}
		out, err := norm.Proc(enc)
		if err != nil {
			t.Fatalf("normalize Proc failed: %v", err)
		}
		if err := tr.EncodeCopy(enc, out); err != nil {
			t.Fatalf("EncodeCopy failed: %v", err)
		}
		if !tr.InFlight() {
			t.Error("InFlight() = false after EncodeCopy")
		}
		if err := tr.EncodeCopy(enc, out); !errors.Is(err, ErrTransferInFlight) {
			t.Errorf("second EncodeCopy error = %v, want ErrTransferInFlight", err)
		}

		sub, err := Submit(device, queue, enc, "iteration")
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		tr.Track(sub)

		got, err := tr.Read(nil, nil)
		sub.Release()
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if len(got) != n*blocks {
			t.Errorf("len(got) = %d, want %d", len(got), n*blocks)
		}
		if tr.InFlight() {
			t.Error("InFlight() = true after Read")
		}
		if tr.Staging().MapState() != MapStateUnmapped {
			t.Errorf("staging left %s after Read", tr.Staging().MapState())
		}
	}
}

func TestTransferRejectsMismatchedBuffer(t *testing.T) {
	device, queue := newNoopDevice(t)

	tr, err := NewTransfer(device, queue, "test", 512, 0)
	if err != nil {
		t.Fatalf("NewTransfer failed: %v", err)
	}
	defer tr.Close()

	big, err := CreateComplexBuffer(device, "big", 1024)
	if err != nil {
		t.Fatalf("CreateComplexBuffer failed: %v", err)
	}
	defer big.Destroy()

	enc := beginEncoder(t, device)
	defer enc.DiscardEncoding()

	if err := tr.EncodeCopy(enc, BufferRef{Role: RoleA, Buffer: big}); !errors.Is(err, ErrBufferSizeMismatch) {
		t.Errorf("error = %v, want ErrBufferSizeMismatch", err)
	}
	if err := tr.EncodeCopy(enc, BufferRef{}); !errors.Is(err, ErrNilBuffer) {
		t.Errorf("nil buffer error = %v", err)
	}
	if err := tr.EncodeCopy(nil, BufferRef{Buffer: big}); !errors.Is(err, ErrNilEncoder) {
		t.Errorf("nil encoder error = %v", err)
	}
}

func TestTransferReadWithoutCopy(t *testing.T) {
	device, queue := newNoopDevice(t)

	tr, err := NewTransfer(device, queue, "test", 8, 0)
	if err != nil {
		t.Fatalf("NewTransfer failed: %v", err)
	}
	defer tr.Close()

	if _, err := tr.Read(nil, nil); !errors.Is(err, ErrNilSubmission) {
		t.Errorf("Read without submission error = %v", err)
	}

	sub, err := Submit(device, queue, beginEncoder(t, device), "empty")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	defer sub.Release()
	if _, err := tr.Read(nil, sub); !errors.Is(err, ErrBufferNotMapped) {
		t.Errorf("Read without copy error = %v", err)
	}
}

func TestTransferStaysInFlightAfterTimeout(t *testing.T) {
	noopDevice, queue := newNoopDevice(t)
	device := hungDevice{noopDevice}

	src, err := CreateComplexBuffer(device, "src", 64)
	if err != nil {
		t.Fatalf("CreateComplexBuffer failed: %v", err)
	}
	defer src.Destroy()
	tr, err := NewTransfer(device, queue, "hung", 64, time.Millisecond)
	if err != nil {
		t.Fatalf("NewTransfer failed: %v", err)
	}
	defer tr.Close()

	enc := beginEncoder(t, device)
	if err := tr.EncodeCopy(enc, BufferRef{Role: RoleA, Buffer: src}); err != nil {
		t.Fatalf("EncodeCopy failed: %v", err)
	}
	sub, err := Submit(device, queue, enc, "hung")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	tr.Track(sub)

	if _, err := tr.Read(nil, nil); !errors.Is(err, ErrFenceTimeout) {
		t.Fatalf("Read error = %v, want ErrFenceTimeout", err)
	}
	if sub.Done() {
		t.Fatal("submission reported done on a hung device")
	}
	if !tr.InFlight() {
		t.Error("copy must stay in flight while the device may still run it")
	}
	if !errors.Is(tr.Err(), ErrFenceTimeout) {
		t.Errorf("Err() = %v, want ErrFenceTimeout", tr.Err())
	}
	if tr.Staging().MapState() != MapStateUnmapped {
		t.Errorf("pending map not cancelled: %s", tr.Staging().MapState())
	}

	// The failure is sticky.
	if _, err := tr.Read(nil, sub); !errors.Is(err, ErrFenceTimeout) {
		t.Errorf("second Read error = %v", err)
	}
	enc2 := beginEncoder(t, device)
	defer enc2.DiscardEncoding()
	if err := tr.EncodeCopy(enc2, BufferRef{Role: RoleA, Buffer: src}); !errors.Is(err, ErrFenceTimeout) {
		t.Errorf("EncodeCopy after timeout error = %v", err)
	}
	tr.Reset()
	if !tr.InFlight() {
		t.Error("Reset cleared a poisoned transfer")
	}
}

func TestTransferRejectsOtherSubmission(t *testing.T) {
	device, queue := newNoopDevice(t)

	src, err := CreateComplexBuffer(device, "src", 64)
	if err != nil {
		t.Fatalf("CreateComplexBuffer failed: %v", err)
	}
	defer src.Destroy()
	tr, err := NewTransfer(device, queue, "test", 64, time.Second)
	if err != nil {
		t.Fatalf("NewTransfer failed: %v", err)
	}
	defer tr.Close()

	stale, err := Submit(device, queue, beginEncoder(t, device), "stale")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	defer stale.Release()
	if err := stale.Wait(time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	enc := beginEncoder(t, device)
	if err := tr.EncodeCopy(enc, BufferRef{Role: RoleA, Buffer: src}); err != nil {
		t.Fatalf("EncodeCopy failed: %v", err)
	}
	sub, err := Submit(device, queue, enc, "current")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	defer sub.Release()
	if _, err := tr.Read(nil, sub); !errors.Is(err, ErrSubmissionMismatch) {
		t.Errorf("Read before Track error = %v, want ErrSubmissionMismatch", err)
	}
	tr.Track(sub)

	if _, err := tr.Read(nil, stale); !errors.Is(err, ErrSubmissionMismatch) {
		t.Fatalf("Read with stale submission error = %v, want ErrSubmissionMismatch", err)
	}
	if tr.Staging().MapState() != MapStateUnmapped {
		t.Errorf("staging touched by rejected Read: %s", tr.Staging().MapState())
	}
	got, err := tr.Read(nil, sub)
	if err != nil {
		t.Fatalf("Read with tracked submission failed: %v", err)
	}
	if len(got) != 64 {
		t.Errorf("len(got) = %d, want 64", len(got))
	}
}
