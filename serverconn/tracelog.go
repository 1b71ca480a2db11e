package serverconn

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/zt8989/ed2k-serverconn/ed2k"
	"github.com/zt8989/ed2k-serverconn/logging"
)

// logFrame renders one debug-level table row per wire frame this connection
// sends or receives: direction, opcode, and size. Client-side direction
// labels are the mirror of the server's: "send" is C->S, "recv" is S->C.
func logFrame(dir string, remote string, opcode uint8, payloadLen int) {
	logging.DebugTablef(formatFrameLogLine(dir, remote, opcodeName(opcode, dir), payloadLen))
}

func directionLabel(dir string) string {
	switch dir {
	case "send":
		return "C->S"
	case "recv":
		return "S->C"
	default:
		return "?"
	}
}

func opcodeName(op uint8, dir string) string {
	flow := directionLabel(dir)
	switch op {
	case ed2k.OpLoginRequest:
		return "OP_LOGINREQUEST(0x01) " + flow
	case ed2k.OpServerMessage:
		return "OP_SERVERMESSAGE(0x38) " + flow
	case ed2k.OpServerStatus:
		return "OP_SERVERSTATUS(0x34) " + flow
	case ed2k.OpIDChange:
		return "OP_IDCHANGE(0x40) " + flow
	case ed2k.OpOfferFiles:
		return "OP_OFFERFILES(0x15) " + flow
	case ed2k.OpServerList:
		return "OP_SERVERLIST(0x32) " + flow
	case ed2k.OpServerIdent:
		return "OP_SERVERIDENT(0x41) " + flow
	case ed2k.OpGetSources:
		return "OP_GETSOURCES(0x19) " + flow
	case ed2k.OpFoundSources:
		return "OP_FOUNDSOURCES(0x42) " + flow
	case ed2k.OpSearchRequest:
		return "OP_SEARCHREQUEST(0x16) " + flow
	case ed2k.OpSearchResult:
		return "OP_SEARCHRESULT(0x33) " + flow
	case ed2k.OpReject:
		return "OP_REJECT(0x05) " + flow
	case ed2k.OpDisconnect:
		return "OP_DISCONNECT(0x18) " + flow
	case ed2k.OpUsersList:
		return "OP_USERSLIST(0x43) " + flow
	case ed2k.OpCallbackReqd:
		return "OP_CALLBACKREQD(0x35) " + flow
	default:
		return fmt.Sprintf("0x%02x %s", op, flow)
	}
}

func formatFrameLogLine(dir, remote, opcode string, payloadLen int) string {
	var b strings.Builder
	tw := table.NewWriter()
	tw.SetOutputMirror(&b)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Dir", "Flow", "Remote", "Opcode", "PayloadLen"})
	tw.AppendRow(table.Row{dir, directionLabel(dir), remote, opcode, payloadLen})
	tw.Render()
	return strings.TrimRight(b.String(), "\n")
}
