package activation

import (
	"fmt"
	"testing"

	"github.com/abelbrown/scrollbet/internal/model"
)

type items []model.FeedItem

func (s *items) Len() int { return len(*s) }

func (s *items) At(i int) (model.FeedItem, bool) {
	if i < 0 || i >= len(*s) {
		return model.FeedItem{}, false
	}
	return (*s)[i], true
}

func makeItems(n int) *items {
	s := make(items, n)
	for i := range s {
		s[i] = model.FeedItem{ID: fmt.Sprintf("item-%d", i)}
	}
	return &s
}

type recorder struct {
	ids     []string
	indexes []int
}

func (r *recorder) listen(item model.FeedItem, index int) {
	r.ids = append(r.ids, item.ID)
	r.indexes = append(r.indexes, index)
}

type fakeAnimator struct{ offsets []float64 }

func (f *fakeAnimator) AnimateTo(o float64) { f.offsets = append(f.offsets, o) }

func TestScrollToPageEmitsOnce(t *testing.T) {
	src := makeItems(10)
	for k := 0; k < 10; k++ {
		rec := &recorder{}
		tr := New(src, rec.listen)
		if k != 0 {
			tr.Scroll(float64(k)*800, 800)
			tr.Scroll(float64(k)*800+100, 800)
		}
		if k == 0 {
			tr.Sync()
		}
		if tr.Active() != k {
			t.Errorf("k=%d: active=%d", k, tr.Active())
		}
		if len(rec.ids) != 1 || rec.ids[0] != fmt.Sprintf("item-%d", k) {
			t.Errorf("k=%d: expected one callback for item-%d, got %v", k, k, rec.ids)
		}
	}
}

func TestScrollRounds(t *testing.T) {
	rec := &recorder{}
	tr := New(makeItems(5), rec.listen)
	tr.Scroll(1.49*600, 600)
	tr.Scroll(1.51*600, 600)
	if len(rec.indexes) != 2 || rec.indexes[0] != 1 || rec.indexes[1] != 2 {
		t.Errorf("unexpected transitions %v", rec.indexes)
	}
}

func TestScrollPastEndIsIgnored(t *testing.T) {
	rec := &recorder{}
	tr := New(makeItems(3), rec.listen)
	tr.Scroll(10*500, 500)
	if tr.Active() != 0 || len(rec.ids) != 0 {
		t.Errorf("scroll past end should be a no-op, active=%d calls=%v", tr.Active(), rec.ids)
	}
}

func TestNavigationBoundsAreNoOps(t *testing.T) {
	rec := &recorder{}
	anim := &fakeAnimator{}
	tr := New(makeItems(3), rec.listen)
	tr.SetAnimator(anim)
	tr.Sync()

	if tr.Prev() {
		t.Error("Prev at first item should report no change")
	}
	tr.Next()
	tr.Next()
	if tr.Next() {
		t.Error("Next at last item should report no change")
	}
	if tr.Active() != 2 {
		t.Errorf("expected active=2, got %d", tr.Active())
	}
	want := []int{0, 1, 2}
	if fmt.Sprint(rec.indexes) != fmt.Sprint(want) {
		t.Errorf("callbacks %v, want %v", rec.indexes, want)
	}
	if len(anim.offsets) != 2 || anim.offsets[1] != 2 {
		t.Errorf("unexpected animation targets %v", anim.offsets)
	}
}

func TestAnimationFramesDoNotReemit(t *testing.T) {
	rec := &recorder{}
	tr := New(makeItems(5), rec.listen)
	tr.SetAnimator(&fakeAnimator{})
	tr.Sync()
	tr.ScrollTo(3)

	for _, pos := range []float64{0.4, 1.2, 2.2, 2.9, 3.0} {
		tr.Scroll(pos, 1)
	}
	if fmt.Sprint(rec.indexes) != "[0 3]" {
		t.Errorf("frames re-emitted: %v", rec.indexes)
	}

	// settled: a real scroll is trusted again
	tr.Scroll(4, 1)
	if tr.Active() != 4 {
		t.Errorf("expected active=4 after settle, got %d", tr.Active())
	}
}

func TestSyncEmitsOnlyOnce(t *testing.T) {
	src := makeItems(0)
	rec := &recorder{}
	tr := New(src, rec.listen)
	tr.Sync()
	if len(rec.ids) != 0 {
		t.Fatal("Sync on empty source must not emit")
	}
	*src = append(*src, model.FeedItem{ID: "first"})
	tr.Sync()
	tr.Sync()
	if len(rec.ids) != 1 || rec.ids[0] != "first" {
		t.Errorf("expected single emission of first, got %v", rec.ids)
	}
}

func TestClampAfterShrink(t *testing.T) {
	src := makeItems(5)
	tr := New(src, nil)
	tr.ScrollTo(4)
	*src = (*src)[:2]
	tr.Clamp()
	if tr.Active() != 1 {
		t.Errorf("expected clamp to 1, got %d", tr.Active())
	}
}

func TestSpringSettlesOnTarget(t *testing.T) {
	s := NewSpring(60)
	s.AnimateTo(3)
	moving := true
	var pos float64
	for i := 0; i < 600 && moving; i++ {
		pos, moving = s.Step()
	}
	if moving || pos != 3 {
		t.Errorf("spring did not settle: pos=%v moving=%v", pos, moving)
	}
}
