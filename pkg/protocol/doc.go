// Package protocol implements the binary wire format spoken between a Lime
// host and its clients over WebSocket.
//
// Every WebSocket binary message carries exactly one frame:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHello (0x00): client greeting, answered by a Welcome carrying
//     the peer id the host assigned
//   - FramePacket (0x01): application data on a channel
//   - FrameDisconnect (0x02): orderly disconnect with a reason code
//   - FrameControl (0x03): ping, pong and close
//
// # Packets
//
// A packet frame payload is the channel byte followed by the raw data:
//
//	[Channel: 1 byte][Data: remaining bytes]
//
// FlagUnreliable marks data the sender is willing to lose when the
// receiving side falls behind.
//
// # Encoding
//
// Fixed-width integers are big-endian. Strings are prefixed with a varint
// length.
package protocol
