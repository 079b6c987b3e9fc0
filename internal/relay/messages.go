package relay

// Control vocabulary of the pairing phase. Once a room holds both sides the
// relay forwards frames verbatim and never parses them; the only control
// frame after pairing is peer-left.
const (
	ctrlHost        = "host"
	ctrlJoin        = "join"
	ctrlRoomCreated = "room-created"
	ctrlRoomTaken   = "room-taken"
	ctrlRoomJoined  = "room-joined"
	ctrlRoomMissing = "room-missing"
	ctrlPeerJoined  = "peer-joined"
	ctrlPeerLeft    = "peer-left"
)

type controlMessage struct {
	Type     string `json:"type"`
	Room     string `json:"room,omitempty"`
	ClientID string `json:"clientId,omitempty"`
}
