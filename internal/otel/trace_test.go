package otel

import "testing"

func TestSetTraceEnabled(t *testing.T) {
	orig := TraceEnabled()
	t.Cleanup(func() { SetTraceEnabled(orig) })

	for _, v := range []bool{true, false, true} {
		SetTraceEnabled(v)
		if TraceEnabled() != v {
			t.Errorf("TraceEnabled() = %v after SetTraceEnabled(%v)", TraceEnabled(), v)
		}
	}
}
