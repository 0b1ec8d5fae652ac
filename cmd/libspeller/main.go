// Command libspeller is built with -buildmode=c-shared and exports the
// explicit-release C interface used by keyboard hosts.
//
// Every returned handle, suggestion list, cursor and string is owned by the
// caller and released with its matching free function. Handles are
// generation-checked, so a double free or a use after free returns false or
// an empty value instead of touching freed memory. Strings returned here are
// tracked and speller_str_free reports false for pointers it did not hand out.
package main

/*
#include <stdbool.h>
#include <stddef.h>
#include <stdint.h>
#include <stdlib.h>

typedef struct token_record_s {
    uint8_t type;
    uint32_t start;
    uint32_t end;
    const char* value;
} token_record_t;
*/
import "C"

import (
	"math"
	"sync"
	"unsafe"

	"speller/internal/archive"
	"speller/internal/binding"
	"speller/internal/handle"
)

var registry = binding.NewRegistry(archive.Logger())

// cstrings tracks C strings handed to the caller.
var cstrings = struct {
	mu   sync.Mutex
	live map[unsafe.Pointer]struct{}
}{live: make(map[unsafe.Pointer]struct{})}

func newCString(s string) *C.char {
	p := C.CString(s)
	cstrings.mu.Lock()
	cstrings.live[unsafe.Pointer(p)] = struct{}{}
	cstrings.mu.Unlock()
	return p
}

func freeCString(p *C.char) C.bool {
	if p == nil {
		return false
	}
	key := unsafe.Pointer(p)
	cstrings.mu.Lock()
	_, ok := cstrings.live[key]
	delete(cstrings.live, key)
	cstrings.mu.Unlock()
	if !ok {
		return false
	}
	C.free(key)
	return true
}

// errorText is allocated once per code and never freed.
var errorText = func() map[uint8]*C.char {
	m := map[uint8]*C.char{0: C.CString("unknown error")}
	for _, k := range []archive.Kind{archive.KindUnreadable, archive.KindCorrupt, archive.KindUnpack} {
		m[k.Code()] = C.CString("archive " + k.String())
	}
	return m
}()

// =====================
// Archives
// =====================

//export speller_archive_new
func speller_archive_new(path *C.char, errCode *C.uint8_t) C.uint64_t {
	h, err := registry.LoadArchive(C.GoString(path), "")
	if err != nil {
		if errCode != nil {
			*errCode = C.uint8_t(binding.LoadErrorCode(err))
		}
		return 0
	}
	return C.uint64_t(h)
}

// speller_archive_open loads with an optional unpack directory. On failure
// it returns 0 and, when errMsg is set, a message to release with
// speller_str_free.
//
//export speller_archive_open
func speller_archive_open(path, tmpDir *C.char, errCode *C.uint8_t, errMsg **C.char) C.uint64_t {
	var dir string
	if tmpDir != nil {
		dir = C.GoString(tmpDir)
	}
	h, err := registry.LoadArchive(C.GoString(path), dir)
	if err != nil {
		if errCode != nil {
			*errCode = C.uint8_t(binding.LoadErrorCode(err))
		}
		if errMsg != nil {
			*errMsg = newCString(err.Error())
		}
		return 0
	}
	return C.uint64_t(h)
}

// speller_get_error returns a static description of a load error code. The
// result must not be freed.
//
//export speller_get_error
func speller_get_error(code C.uint8_t) *C.char {
	if s, ok := errorText[uint8(code)]; ok {
		return s
	}
	return errorText[0]
}

//export speller_archive_free
func speller_archive_free(h C.uint64_t) C.bool {
	return registry.ReleaseArchive(handle.Handle(h)) == nil
}

//export speller_meta_get_locale
func speller_meta_get_locale(h C.uint64_t) *C.char {
	locale, _ := registry.Locale(handle.Handle(h))
	return newCString(locale)
}

//export speller_str_free
func speller_str_free(s *C.char) C.bool {
	return freeCString(s)
}

//export speller_set_queue_limit
func speller_set_queue_limit(h C.uint64_t, limit C.size_t) C.bool {
	n := uint64(limit)
	if n > math.MaxInt32 {
		n = 0
	}
	return registry.SetQueueLimit(handle.Handle(h), int(n)) == nil
}

//export speller_set_weight_limit
func speller_set_weight_limit(h C.uint64_t, weight C.float) C.bool {
	return registry.SetWeightLimit(handle.Handle(h), float32(weight)) == nil
}

//export speller_set_beam
func speller_set_beam(h C.uint64_t, beam C.float) C.bool {
	return registry.SetBeam(handle.Handle(h), float32(beam)) == nil
}

// =====================
// Queries
// =====================

//export speller_is_correct
func speller_is_correct(h C.uint64_t, word *C.char) C.bool {
	ok, err := registry.IsCorrect(handle.Handle(h), C.GoString(word))
	return C.bool(err == nil && ok)
}

// speller_suggest returns a suggestion list handle, or 0 when h is not a
// live archive. max_weight and beam of zero or less use the archive settings.
//
//export speller_suggest
func speller_suggest(h C.uint64_t, word *C.char, nBest C.size_t, maxWeight, beam C.float) C.uint64_t {
	list, err := registry.Suggest(handle.Handle(h), C.GoString(word), clampN(nBest), float32(maxWeight), float32(beam))
	if err != nil {
		return 0
	}
	return C.uint64_t(list)
}

//export speller_suggest_json
func speller_suggest_json(h C.uint64_t, word *C.char, nBest C.size_t, maxWeight, beam C.float) *C.char {
	js, err := registry.SuggestJSON(handle.Handle(h), C.GoString(word), clampN(nBest), float32(maxWeight), float32(beam))
	if err != nil {
		return nil
	}
	return newCString(string(js))
}

func clampN(n C.size_t) int {
	if uint64(n) > math.MaxInt32 {
		return 0
	}
	return int(n)
}

//export suggest_vec_len
func suggest_vec_len(v C.uint64_t) C.size_t {
	n, _ := registry.SuggestionLen(handle.Handle(v))
	return C.size_t(n)
}

//export suggest_vec_get_value
func suggest_vec_get_value(v C.uint64_t, i C.size_t) *C.char {
	s, err := registry.SuggestionValue(handle.Handle(v), clampIndex(i))
	if err != nil {
		return nil
	}
	return newCString(s)
}

// suggest_vec_get_weight returns NaN for a bad list or index.
//
//export suggest_vec_get_weight
func suggest_vec_get_weight(v C.uint64_t, i C.size_t) C.float {
	w, err := registry.SuggestionWeight(handle.Handle(v), clampIndex(i))
	if err != nil {
		return C.float(math.NaN())
	}
	return C.float(w)
}

func clampIndex(i C.size_t) int {
	if uint64(i) > math.MaxInt32 {
		return -1
	}
	return int(i)
}

//export suggest_vec_value_free
func suggest_vec_value_free(s *C.char) C.bool {
	return freeCString(s)
}

//export suggest_vec_free
func suggest_vec_free(v C.uint64_t) C.bool {
	return registry.ReleaseSuggestions(handle.Handle(v)) == nil
}

// =====================
// Tokenizer
// =====================

//export speller_tokenize
func speller_tokenize(text *C.char) C.uint64_t {
	h, err := registry.Tokenize(C.GoString(text))
	if err != nil {
		return 0
	}
	return C.uint64_t(h)
}

// speller_token_next fills record and returns true, or returns false at the
// end of the text. A nil record leaves the cursor where it was.
// record.value is released with speller_str_free.
//
//export speller_token_next
func speller_token_next(h C.uint64_t, record *C.token_record_t) C.bool {
	return C.bool(nextToken(handle.Handle(h), record))
}

func nextToken(h handle.Handle, record *C.token_record_t) bool {
	if record == nil {
		return false
	}
	tok, ok, err := registry.NextToken(h)
	if err != nil || !ok {
		return false
	}
	record._type = C.uint8_t(tok.Type)
	record.start = C.uint32_t(tok.Start)
	record.end = C.uint32_t(tok.End)
	record.value = newCString(tok.Value)
	return true
}

//export speller_tokenizer_free
func speller_tokenizer_free(h C.uint64_t) C.bool {
	return registry.ReleaseCursor(handle.Handle(h)) == nil
}

func main() {}
