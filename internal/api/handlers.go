package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceLogic/internal/config"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/decoder"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/dsl"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/logic"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/session"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/timeline"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEMsgpack is the content type of msgpack responses.
const MIMEMsgpack = "application/msgpack"

// maxCaptureBytes bounds an uploaded capture body.
const maxCaptureBytes = 256 << 20

// Handler serves one session over HTTP.
type Handler struct {
	sess    *session.Session
	log     zerolog.Logger
	version string
}

// NewHandler creates a handler for sess.
func NewHandler(sess *session.Session, log zerolog.Logger, version string) *Handler {
	return &Handler{sess: sess, log: log, version: version}
}

// HandleHealth returns server health status
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  h.version,
		"state":    h.sess.State().String(),
		"capture":  h.sess.Capture().Loaded(),
		"decoders": h.sess.Registry().Len(),
	})
}

// HandleProtocols lists the protocol catalogue.
func (h *Handler) HandleProtocols(c echo.Context) error {
	protocols := decoder.Protocols()
	out := make([]ProtocolInfo, 0, len(protocols))
	for _, p := range protocols {
		info := ProtocolInfo{ID: int(p), Name: p.String(), Kinds: kindInfos(p.Kinds())}
		for _, r := range p.Roles() {
			info.Roles = append(info.Roles, RoleInfo{Name: r.Name, Required: r.Required, Description: r.Description})
		}
		info.Options = []OptionInfo{}
		for _, d := range p.OptionDefs() {
			oi := OptionInfo{Name: d.Name, Type: d.Type.String(), Default: d.Default, Choices: d.Choices, Description: d.Description}
			if d.Type == decoder.OptionInt {
				lo, hi := d.Min, d.Max
				oi.Min, oi.Max = &lo, &hi
			}
			info.Options = append(info.Options, oi)
		}
		out = append(out, info)
	}
	return c.JSON(http.StatusOK, out)
}

func kindInfos(t timeline.KindTable) []KindInfo {
	out := make([]KindInfo, len(t))
	for i, k := range t {
		out[i] = KindInfo{Kind: timeline.Kind(i), Label: k.Label, Color: timeline.Hex(k.Color)}
	}
	return out
}

// HandleGetCapture describes the loaded capture.
func (h *Handler) HandleGetCapture(c echo.Context) error {
	info := CaptureInfo{State: h.sess.State().String()}
	if snap, err := h.sess.Capture().Snapshot(); err == nil {
		info.Loaded = true
		info.Samples = snap.Samples()
		info.SampleRate = snap.SampleRate()
		info.UnitSize = snap.UnitSize()
	}
	return c.JSON(http.StatusOK, info)
}

// HandleLoadCapture installs a raw sample dump sent as the request body.
// Query parameters: unit_size (default 1), rate (Hz), probes (comma list
// of enabled channels, default all).
func (h *Handler) HandleLoadCapture(c echo.Context) error {
	cc := config.CaptureConfig{UnitSize: 1}
	if v := c.QueryParam("unit_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return NewBadRequestError("invalid unit_size", err)
		}
		cc.UnitSize = n
	}
	if v := c.QueryParam("rate"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return NewBadRequestError("invalid rate", err)
		}
		cc.SampleRate = n
	}
	if v := c.QueryParam("probes"); v != "" {
		for _, f := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return NewBadRequestError("invalid probes", err)
			}
			cc.Probes = append(cc.Probes, n)
		}
	}
	if cc.UnitSize < 1 {
		return NewBadRequestError("unit_size must be positive", nil)
	}

	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCaptureBytes+1))
	if err != nil {
		return NewBadRequestError("failed to read body", err)
	}
	if len(data) > maxCaptureBytes {
		return &APIError{Status: http.StatusRequestEntityTooLarge, Code: "TOO_LARGE", Message: "capture exceeds upload limit"}
	}
	snap, err := logic.NewSnapshot(data, cc.UnitSize, cc.SampleRate, cc.ProbeTable())
	if err != nil {
		return NewBadRequestError("invalid capture layout", err)
	}
	resp := DecodeResponse{Decoders: h.sess.Registry().Len()}
	if err := h.sess.Load(snap); err != nil {
		if errors.Is(err, session.ErrInvalidTransition) {
			return fromDomain(err)
		}
		resp.Errors = splitJoined(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleListDecoders lists registered decoders in handle order.
func (h *Handler) HandleListDecoders(c echo.Context) error {
	entries := h.sess.Registry().Entries()
	out := make([]DecoderInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, decoderInfo(e.Handle, e.Decoder))
	}
	return c.JSON(http.StatusOK, out)
}

func decoderInfo(id session.Handle, d *decoder.Decoder) DecoderInfo {
	tl := d.Timeline()
	return DecoderInfo{
		ID:           int(id),
		Protocol:     d.Name(),
		Spec:         dsl.Format(d.Protocol(), d.Probes(), d.Options()),
		Probes:       d.Probes(),
		Options:      d.Options(),
		OptionsIndex: d.OptionsIndex(),
		Intervals:    tl.Len(),
		Generation:   tl.Generation().String(),
	}
}

func (r DecoderRequest) resolve() (dsl.Resolved, error) {
	res, err := config.DecoderConfig{
		Spec:     r.Spec,
		Protocol: r.Protocol,
		Channels: r.Channels,
		Options:  r.Options,
	}.Resolve()
	if err != nil {
		return dsl.Resolved{}, err
	}
	if r.Index != nil {
		res.Index = decoder.OptionsIndex(r.Index)
	}
	return res, nil
}

// HandleCreateDecoder registers a decoder and decodes the loaded capture.
func (h *Handler) HandleCreateDecoder(c echo.Context) error {
	var req DecoderRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	res, err := req.resolve()
	if err != nil {
		return NewValidationError(err)
	}
	id, err := h.sess.Registry().Add(int(res.Protocol), res.Channels, res.Options, res.Index)
	if err != nil {
		return fromDomain(err)
	}
	d, err := h.sess.Registry().Get(id)
	if err != nil {
		return fromDomain(err)
	}
	return c.JSON(http.StatusCreated, decoderInfo(id, d))
}

func (h *Handler) lookup(c echo.Context) (session.Handle, *decoder.Decoder, error) {
	raw := c.Param("id")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil, NewBadRequestError("invalid decoder id", err)
	}
	d, err := h.sess.Registry().Get(session.Handle(n))
	if err != nil {
		return 0, nil, NewNotFoundError("decoder", raw)
	}
	return session.Handle(n), d, nil
}

// HandleGetDecoder describes one decoder.
func (h *Handler) HandleGetDecoder(c echo.Context) error {
	id, d, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decoderInfo(id, d))
}

// HandleUpdateDecoder reconfigures a decoder. The protocol cannot change.
func (h *Handler) HandleUpdateDecoder(c echo.Context) error {
	id, d, err := h.lookup(c)
	if err != nil {
		return err
	}
	var req DecoderRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Spec == "" && req.Protocol == "" {
		req.Protocol = d.Name()
	}
	res, err := req.resolve()
	if err != nil {
		return NewValidationError(err)
	}
	if res.Protocol != d.Protocol() {
		return NewConflictError(fmt.Sprintf("decoder %d is %s, not %s", id, d.Protocol(), res.Protocol), nil)
	}
	if err := h.sess.Registry().Reset(id, res.Channels, res.Options, res.Index); err != nil {
		return fromDomain(err)
	}
	return c.JSON(http.StatusOK, decoderInfo(id, d))
}

// HandleDeleteDecoder removes a decoder.
func (h *Handler) HandleDeleteDecoder(c echo.Context) error {
	id, _, err := h.lookup(c)
	if err != nil {
		return err
	}
	if err := h.sess.Registry().Remove(id); err != nil {
		return fromDomain(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleStates answers a subsampled query over one decoder's timeline.
// Query parameters: start, end (samples, default the whole capture), min
// (minimum display length in samples), format (json or msgpack). The ETag
// is the timeline generation, so a client may poll with If-None-Match.
func (h *Handler) HandleStates(c echo.Context) error {
	id, d, err := h.lookup(c)
	if err != nil {
		return err
	}
	tl := d.Timeline()
	etag := `"` + tl.Generation().String() + `"`
	c.Response().Header().Set("ETag", etag)
	if match := c.Request().Header.Get("If-None-Match"); match != "" && (match == "*" || strings.Contains(match, etag)) {
		return c.NoContent(http.StatusNotModified)
	}

	var start, end uint64
	if _, last, ok := tl.Span(); ok {
		end = last
	}
	if snap, err := h.sess.Capture().Snapshot(); err == nil {
		end = snap.Samples()
	}
	if v := c.QueryParam("start"); v != "" {
		if start, err = strconv.ParseUint(v, 10, 64); err != nil {
			return NewBadRequestError("invalid start", err)
		}
	}
	if v := c.QueryParam("end"); v != "" {
		if end, err = strconv.ParseUint(v, 10, 64); err != nil {
			return NewBadRequestError("invalid end", err)
		}
	}
	var minLength float64
	if v := c.QueryParam("min"); v != "" {
		if minLength, err = strconv.ParseFloat(v, 64); err != nil {
			return NewBadRequestError("invalid min", err)
		}
	}

	resp := StatesResponse{
		Decoder:    int(id),
		Generation: tl.Generation().String(),
		Start:      start,
		End:        end,
		MinLength:  minLength,
		Kinds:      kindInfos(d.Kinds()),
		States:     tl.Query(start, end, minLength),
	}
	if resp.States == nil {
		resp.States = []timeline.Interval{}
	}

	if wantsMsgpack(c) {
		data, err := msgpack.Marshal(resp)
		if err != nil {
			return NewInternalError("failed to encode msgpack", err)
		}
		return c.Blob(http.StatusOK, MIMEMsgpack, data)
	}
	return c.JSON(http.StatusOK, resp)
}

func wantsMsgpack(c echo.Context) bool {
	switch c.QueryParam("format") {
	case "msgpack":
		return true
	case "json":
		return false
	}
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), MIMEMsgpack)
}

// HandleDecode re-runs every decoder over the loaded capture.
func (h *Handler) HandleDecode(c echo.Context) error {
	resp := DecodeResponse{Decoders: h.sess.Registry().Len()}
	if err := h.sess.Decode(); err != nil {
		if errors.Is(err, session.ErrNoCapture) || errors.Is(err, session.ErrCaptureInProgress) {
			return fromDomain(err)
		}
		resp.Errors = splitJoined(err)
		h.log.Warn().Err(err).Msg("decode finished with errors")
	}
	return c.JSON(http.StatusOK, resp)
}

// splitJoined flattens an errors.Join result.
func splitJoined(err error) []string {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range j.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
