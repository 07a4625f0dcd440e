package callmonitor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hausnetz/fonwatch/internal/domain"
)

// The call monitor emits one semicolon-separated line per event:
//
//	02.01.20 20:35:50;RING;0;01701234567;555;SIP0;
//	02.01.20 20:36:10;CALL;1;4;555;01701234567;SIP0;
//	02.01.20 20:36:20;CONNECT;0;4;01701234567;
//	02.01.20 20:37:50;DISCONNECT;0;90;
const timestampLayout = "02.01.06 15:04:05"

// ParseLine parses one call monitor line into a domain.Call.
func ParseLine(line string) (domain.Call, error) {
	fields := strings.Split(strings.TrimSpace(line), ";")
	if len(fields) < 4 {
		return domain.Call{}, fmt.Errorf("call monitor line has %d fields, need at least 4", len(fields))
	}

	at, err := time.ParseInLocation(timestampLayout, strings.TrimSpace(fields[0]), time.Local)
	if err != nil {
		return domain.Call{}, fmt.Errorf("parse timestamp %q: %w", fields[0], err)
	}

	call := domain.Call{
		Kind:         domain.CallKind(strings.ToUpper(strings.TrimSpace(fields[1]))),
		At:           at,
		ConnectionID: strings.TrimSpace(fields[2]),
	}

	switch call.Kind {
	case domain.CallRing:
		if len(fields) < 6 {
			return domain.Call{}, fmt.Errorf("RING line has %d fields, need at least 6", len(fields))
		}
		call.Caller = strings.TrimSpace(fields[3])
		call.Callee = strings.TrimSpace(fields[4])
		call.Device = strings.TrimSpace(fields[5])
	case domain.CallOutgoing:
		if len(fields) < 7 {
			return domain.Call{}, fmt.Errorf("CALL line has %d fields, need at least 7", len(fields))
		}
		call.Extension = strings.TrimSpace(fields[3])
		call.Caller = strings.TrimSpace(fields[4])
		call.Callee = strings.TrimSpace(fields[5])
		call.Device = strings.TrimSpace(fields[6])
	case domain.CallConnect:
		if len(fields) < 5 {
			return domain.Call{}, fmt.Errorf("CONNECT line has %d fields, need at least 5", len(fields))
		}
		call.Extension = strings.TrimSpace(fields[3])
		call.Caller = strings.TrimSpace(fields[4])
	case domain.CallDisconnect:
		secs, err := strconv.Atoi(strings.TrimSpace(fields[3]))
		if err != nil {
			return domain.Call{}, fmt.Errorf("parse DISCONNECT duration %q: %w", fields[3], err)
		}
		call.Duration = time.Duration(secs) * time.Second
	default:
		return domain.Call{}, fmt.Errorf("unknown call monitor verb %q", fields[1])
	}

	return call, nil
}
