package bridge

import "bytes"

// QueryString retrieves a variable-length string output: ask for the size,
// allocate exactly that, fill, and copy into a Go string. Any error of
// either phase is returned, including one caused by the handle being
// deleted in between.
func QueryString(e Engine, handle int32, field OutputField) (string, error) {
	op := field.Op()
	size, err := Translate(op, e.QueryOutput(handle, field, nil, -1))
	if err != nil {
		return "", err
	}
	return fillString(e, op, handle, field, size)
}

// QueryOptionalString is QueryString for outputs that may not exist yet.
// NOT_AVAIL or a zero size from the size query means no data, which is
// reported as ok == false without an error.
func QueryOptionalString(e Engine, handle int32, field OutputField) (s string, ok bool, err error) {
	op := field.Op()
	code := e.QueryOutput(handle, field, nil, -1)
	if code == CodeNotAvail || code == 0 {
		return "", false, nil
	}
	size, err := Translate(op, code)
	if err != nil {
		return "", false, err
	}
	s, err = fillString(e, op, handle, field, size)
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

func fillString(e Engine, op string, handle int32, field OutputField, size int) (string, error) {
	if size == 0 {
		return "", nil
	}
	buf := make([]byte, size)
	n, err := Translate(op, e.QueryOutput(handle, field, buf, size))
	if err != nil {
		return "", err
	}
	return cString(buf, n), nil
}

// SelectedCandidatePair retrieves both candidate strings of the selected
// pair with the same two-phase protocol.
func SelectedCandidatePair(e Engine, pc int32) (local, remote string, err error) {
	const op = "rtcGetSelectedCandidatePair"
	size, err := Translate(op, e.SelectedCandidatePair(pc, nil, nil, -1))
	if err != nil || size == 0 {
		return "", "", err
	}
	lbuf := make([]byte, size)
	rbuf := make([]byte, size)
	if _, err := Translate(op, e.SelectedCandidatePair(pc, lbuf, rbuf, size)); err != nil {
		return "", "", err
	}
	return cString(lbuf, size), cString(rbuf, size), nil
}

// Receive pops one pending message. ok is false when no message is queued.
// Text messages come back without their terminator.
func Receive(e Engine, id int32) (data []byte, text bool, ok bool, err error) {
	const op = "rtcReceiveMessage"
	var size int32
	code := e.ReceiveMessage(id, nil, &size)
	if code == CodeNotAvail {
		return nil, false, false, nil
	}
	if err := Check(op, code); err != nil {
		return nil, false, false, err
	}

	// A NULL buffer only peeks, so even an empty message needs one byte.
	buf := make([]byte, max(abs32(size), 1))
	size = int32(len(buf))
	code = e.ReceiveMessage(id, buf, &size)
	if code == CodeNotAvail {
		return nil, false, false, nil
	}
	if err := Check(op, code); err != nil {
		return nil, false, false, err
	}
	return messageBytes(buf, size), size < 0, true, nil
}

// ReceiveInto pops one pending message into buf. ok is false when no
// message is queued. When buf is too small, n is the negated required size
// and the message stays queued.
func ReceiveInto(e Engine, id int32, buf []byte) (n int, text bool, ok bool, err error) {
	const op = "rtcReceiveMessage"
	size := int32(len(buf))
	var dst []byte
	if len(buf) > 0 {
		dst = buf
	}
	code := e.ReceiveMessage(id, dst, &size)
	switch {
	case code == CodeNotAvail:
		return 0, false, false, nil
	case code == CodeTooSmall:
		return -int(abs32(size)), size < 0, true, nil
	}
	if err := Check(op, code); err != nil {
		return 0, false, false, err
	}
	if dst == nil {
		if size == 0 {
			// Empty binary message; a NULL buffer cannot consume it.
			return 0, false, true, nil
		}
		return -int(abs32(size)), size < 0, true, nil
	}
	msg := messageBytes(buf, size)
	return len(msg), size < 0, true, nil
}

// messageBytes trims buf to the message size reported by the engine.
// Negative sizes mark text and include the terminator.
func messageBytes(buf []byte, size int32) []byte {
	n := min(int(abs32(size)), len(buf))
	if size < 0 {
		return []byte(cString(buf, n))
	}
	return buf[:n]
}

// cString returns buf[:n] up to the first NUL.
func cString(buf []byte, n int) string {
	n = min(max(n, 0), len(buf))
	b := buf[:n]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
