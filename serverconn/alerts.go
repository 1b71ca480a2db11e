package serverconn

// AlertKind discriminates the observable events this connection can raise.
type AlertKind string

const (
	KindServerConnectionInitialized AlertKind = "server_connection_initialized"
	KindServerConnectionFailed      AlertKind = "server_connection_failed"
	KindServerMessage               AlertKind = "server_message"
	KindServerStatus                AlertKind = "server_status"
	KindSearchResult                AlertKind = "search_result"
)

// Alert is the single envelope every connection-observable event is posted
// as; the session decides, per Kind, whether it wants to hear about it.
type Alert struct {
	Kind AlertKind

	// Populated for KindServerConnectionInitialized; FileCount and
	// UserCount also for KindServerStatus.
	ClientID  uint32
	FileCount uint32
	UserCount uint32

	// Populated for KindServerConnectionFailed.
	Err error

	// Populated for KindServerMessage.
	Text string

	// Populated for KindSearchResult.
	Files []SearchResultEntry
}

// SearchResultEntry mirrors ed2k.FileDescriptor without forcing alert
// consumers to import the wire-level package.
type SearchResultEntry struct {
	Hash string
	Name string
	Size uint64
}

func serverConnectionInitializedAlert(clientID, files, users uint32) Alert {
	return Alert{Kind: KindServerConnectionInitialized, ClientID: clientID, FileCount: files, UserCount: users}
}

func serverConnectionFailedAlert(err error) Alert {
	return Alert{Kind: KindServerConnectionFailed, Err: err}
}

func serverMessageAlert(text string) Alert {
	return Alert{Kind: KindServerMessage, Text: text}
}

func serverStatusAlert(users, files uint32) Alert {
	return Alert{Kind: KindServerStatus, UserCount: users, FileCount: files}
}

func searchResultAlert(files []SearchResultEntry) Alert {
	return Alert{Kind: KindSearchResult, Files: files}
}
