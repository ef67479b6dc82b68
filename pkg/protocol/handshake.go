package protocol

// WelcomeStatus is the host's answer to a Hello.
type WelcomeStatus uint8

const (
	WelcomeOK              WelcomeStatus = 0x00
	WelcomeVersionMismatch WelcomeStatus = 0x01
	WelcomeServerFull      WelcomeStatus = 0x02
	WelcomeInvalidFormat   WelcomeStatus = 0x03
)

// String returns the string representation of the status.
func (ws WelcomeStatus) String() string {
	switch ws {
	case WelcomeOK:
		return "OK"
	case WelcomeVersionMismatch:
		return "VersionMismatch"
	case WelcomeServerFull:
		return "ServerFull"
	case WelcomeInvalidFormat:
		return "InvalidFormat"
	default:
		return "Unknown"
	}
}

// Version is a protocol version as major.minor.
type Version struct {
	Major uint8
	Minor uint8
}

// CurrentVersion is the version this build speaks. Peers must agree on
// Major.
var CurrentVersion = Version{Major: 1, Minor: 0}

// Hello is the first frame a client sends after the WebSocket opens.
type Hello struct {
	Version Version
	Name    string
}

// Welcome is the host's reply to Hello.
type Welcome struct {
	Status     WelcomeStatus
	PeerID     uint16
	ServerTime uint64 // Unix milliseconds
}

// EncodeHello builds the frame for h.
func EncodeHello(h *Hello) *Frame {
	e := NewEncoder()
	e.WriteByte(h.Version.Major)
	e.WriteByte(h.Version.Minor)
	e.WriteString(h.Name)
	return NewFrame(FrameHello, e.Bytes())
}

// DecodeHello decodes a client hello frame.
func DecodeHello(f *Frame) (*Hello, error) {
	if f.Type != FrameHello || f.Flags.Has(FlagWelcome) {
		return nil, ErrInvalidFrameType
	}
	d := NewDecoder(f.Payload)
	major, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	minor, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	name, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	return &Hello{Version: Version{Major: major, Minor: minor}, Name: name}, nil
}

// EncodeWelcome builds the frame for w.
func EncodeWelcome(w *Welcome) *Frame {
	e := NewEncoderWithCap(11)
	e.WriteByte(byte(w.Status))
	e.WriteUint16(w.PeerID)
	e.WriteUint64(w.ServerTime)
	return &Frame{Type: FrameHello, Flags: FlagWelcome, Payload: e.Bytes()}
}

// DecodeWelcome decodes a host welcome frame.
func DecodeWelcome(f *Frame) (*Welcome, error) {
	if f.Type != FrameHello || !f.Flags.Has(FlagWelcome) {
		return nil, ErrInvalidFrameType
	}
	d := NewDecoder(f.Payload)
	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	peer, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	now, err := d.ReadUint64()
	if err != nil {
		return nil, err
	}
	return &Welcome{Status: WelcomeStatus(status), PeerID: peer, ServerTime: now}, nil
}

// Compatible reports whether a peer speaking v can talk to this build.
func (v Version) Compatible() bool {
	return v.Major == CurrentVersion.Major
}
