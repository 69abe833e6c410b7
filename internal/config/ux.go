package config

// UIConfig holds terminal interface configuration.
type UIConfig struct {
	// Theme is auto, light or dark. auto inspects the terminal background.
	Theme string `yaml:"theme"`

	// SidebarWidth is the history sidebar width in cells.
	SidebarWidth int `yaml:"sidebar_width"`

	// ShowSidebar controls whether the sidebar starts visible.
	ShowSidebar bool `yaml:"show_sidebar"`
}
