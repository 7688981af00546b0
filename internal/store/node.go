package store

// NodeType tags a FileNode as a file or a directory.
type NodeType string

// Node types, serialized as-is to the browser.
const (
	TypeFile      NodeType = "file"
	TypeDirectory NodeType = "directory"
)

// FileNode is a detached copy of a node and, for directories, its subtree.
type FileNode struct {
	Name     string     `json:"name" yaml:"name"`
	Type     NodeType   `json:"type" yaml:"type"`
	Path     string     `json:"path" yaml:"path,omitempty"`
	Content  string     `json:"content,omitempty" yaml:"content,omitempty"`
	Children []FileNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsDir reports whether n is a directory.
func (n FileNode) IsDir() bool {
	return n.Type == TypeDirectory
}

// Info holds node metadata without content or children.
type Info struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"isDir"`
	Size  int    `json:"size"`
}

// EventType represents the kind of change applied to the tree.
type EventType int

// Change event types.
const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
)

func (t EventType) String() string {
	switch t {
	case EventCreate:
		return "create"
	case EventWrite:
		return "update"
	case EventRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event describes one applied mutation.
type Event struct {
	Type  EventType
	Path  string
	IsDir bool
}
