package transcribe

import (
	"encoding/json"
	"fmt"
	"strings"
)

const commandPrompt = `Analyze the audio. Return ONLY JSON: {"result_type":"dictation"|"command"|"wakeword"|"sleep","text":"...","action":"...","params":"..."}. ` +
	`Valid actions: open_app, screenshot, volume_up, volume_down, mute, brightness_up, brightness_down, dark_mode, lock_screen, ` +
	`wifi_toggle, bluetooth_toggle, play_pause, next_track, prev_track, new_tab, close_tab, open_url, select_all, copy, paste, ` +
	`undo, save, set_timer, translate_clipboard, rewrite_clipboard, summarize_clipboard, generate_code.`

// BuildPrompt returns the instruction sent alongside the audio.
func BuildPrompt(mode Mode, tc Context) string {
	switch m := mode.(type) {
	case Translate:
		return fmt.Sprintf("Transcribe and translate into %s. Return ONLY the result.", m.Target)
	case Command:
		p := commandPrompt
		if tc.ActiveApp != "" {
			p += fmt.Sprintf(" Focused application: %s.", tc.ActiveApp)
		}
		return p
	default:
		return dictationPrompt(tc)
	}
}

func dictationPrompt(tc Context) string {
	var b strings.Builder
	b.WriteString("Transcribe the speech. ")
	if tc.AIEditing {
		b.WriteString("Remove filler words. Fix grammar and punctuation. ")
	}
	if tc.FormatCommands {
		b.WriteString("Apply spoken formatting commands. ")
	}
	if len(tc.Dictionary) > 0 {
		fmt.Fprintf(&b, "Terms: %s. ", strings.Join(tc.Dictionary, ", "))
	}
	if tc.WhisperMode {
		b.WriteString("The speaker is whispering; the audio is quiet. ")
	}
	if tc.ActiveApp != "" {
		fmt.Fprintf(&b, "The text will be typed into %s. ", tc.ActiveApp)
	}
	style := tc.WritingStyle
	if style == "" {
		style = "auto"
	}
	fmt.Fprintf(&b, "Style: %s. Return ONLY the text.", style)
	return b.String()
}

// vocabularyHint is the short prompt Whisper uses to bias spelling.
func vocabularyHint(tc Context) string {
	return strings.Join(tc.Dictionary, ", ")
}

// ParseCommandResult decodes a command-mode reply. Markdown code fences are
// stripped; replies that are not valid JSON fall back to dictation.
func ParseCommandResult(text string) Result {
	text = strings.TrimSpace(text)
	if r, ok := decodeResult(text); ok {
		return r
	}

	cleaned := strings.TrimPrefix(text, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	if r, ok := decodeResult(strings.TrimSpace(cleaned)); ok {
		return r
	}

	return Result{Type: ResultDictation, Text: text}
}

func decodeResult(s string) (Result, bool) {
	var r Result
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return Result{}, false
	}
	if !r.Type.Valid() {
		return Result{}, false
	}
	r.Text = strings.TrimSpace(r.Text)
	return r, true
}
