package services

import "testing"

func TestComputeFingerprintDeterminism(t *testing.T) {
	logText := "npm ERR! could not resolve dependency\nnpm ERR! peer react@18"

	first := ComputeFingerprint(logText)
	second := ComputeFingerprint(logText)

	if first != second {
		t.Errorf("Same input produced different fingerprints: %q vs %q", first, second)
	}
	if len(first) != 64 {
		t.Errorf("Expected a 64-char hex digest, got %d chars", len(first))
	}
}

func TestComputeFingerprintNormalization(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{
			name: "surrounding whitespace",
			a:    "build failed at step 3",
			b:    "  build failed at step 3\n\n",
		},
		{
			name: "CRLF line endings",
			a:    "line one\nline two",
			b:    "line one\r\nline two",
		},
		{
			name: "bare CR line endings",
			a:    "line one\nline two",
			b:    "line one\rline two",
		},
	}

	for _, test := range tests {
		if ComputeFingerprint(test.a) != ComputeFingerprint(test.b) {
			t.Errorf("%s: expected equal fingerprints for %q and %q", test.name, test.a, test.b)
		}
	}
}

func TestComputeFingerprintDistinguishesContent(t *testing.T) {
	a := ComputeFingerprint("docker: Error response from daemon")
	b := ComputeFingerprint("docker: Error response from daemon.")
	if a == b {
		t.Error("Different content must not share a fingerprint")
	}
}

func TestNormalizeLogText(t *testing.T) {
	normalized := NormalizeLogText("  step one\r\nstep two\r  ")
	if normalized != "step one\nstep two" {
		t.Errorf("Unexpected normalization result: %q", normalized)
	}
}
