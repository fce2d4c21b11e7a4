package util_test

import (
	"testing"

	"github.com/sid3xyz/slircd/internal/util"
)

// device models the per-device attachment count a Session keeps while
// multiple connections of the same account share one channel membership.
type device struct {
	util.RefCount
}

func TestRefCount(t *testing.T) {
	var d device

	d.IncRef()
	d.IncRef()
	d.IncRef()

	if !d.DecRef() {
		t.Fatal("DecRef reported zero refs remaining after 3 incs, 1 dec")
	}
	if !d.DecRef() {
		t.Fatal("DecRef reported zero refs remaining after 3 incs, 2 decs")
	}
	if d.DecRef() {
		t.Fatal("DecRef reported refs remaining after matching inc/dec pairs")
	}
}
