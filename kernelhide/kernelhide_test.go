package kernelhide_test

import (
	"testing"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/kernelhide"
)

func TestRegisterAndIsPathHidden(t *testing.T) {
	r := kernelhide.New()
	if r.IsPathHidden(100, "/data/local/su") {
		t.Fatal("expected unregistered pid to not hide paths")
	}
	r.Register(100)
	if !r.IsPathHidden(100, "/data/local/su") {
		t.Fatal("expected /su path to be hidden for registered pid")
	}
	if r.IsPathHidden(100, "/data/local/tmp/normal") {
		t.Fatal("expected unrelated path to not be hidden")
	}
}

func TestRegisterBoundedList(t *testing.T) {
	r := kernelhide.New()
	for i := 0; i < kernelhide.MaxTargetApps; i++ {
		if !r.Register(i) {
			t.Fatalf("expected registration %d to succeed under the cap", i)
		}
	}
	if r.Register(9999) {
		t.Fatal("expected registration beyond MaxTargetApps to fail")
	}
}

func TestUnregister(t *testing.T) {
	r := kernelhide.New()
	r.Register(42)
	r.Unregister(42)
	if r.IsTarget(42) {
		t.Fatal("expected pid to be removed after Unregister")
	}
}
