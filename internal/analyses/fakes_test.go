package analyses

import (
	"bytes"
	"context"

	"fumble-backend/internal/llm"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type fakeLLM struct {
	reply string
	err   error
	calls int
	last  llm.ScreenshotInput
}

func (f *fakeLLM) JudgeScreenshot(ctx context.Context, in llm.ScreenshotInput) (string, error) {
	f.calls++
	f.last = in
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func pngBytes(size int) []byte {
	if size < len(pngHeader) {
		size = len(pngHeader)
	}
	out := make([]byte, size)
	copy(out, pngHeader)
	return out
}

func pdfBytes() []byte {
	return append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 64)...)
}

const cookedReply = `{"outcome":"You cooked 🔥","roast":"Smooth opener, zero cringe.","tip":"Lock in the plan."}`
