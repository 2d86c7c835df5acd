package params

type ListenerConfig struct {
	// Network must be "tcp", "tcp4", "tcp6", "unix" or "unixpacket".
	Network string
	Address string
}

type WebDaemonConfig struct {
	ListenerConfig
	DataDir string
}

func DefaultWebListenerConfig() ListenerConfig {
	return ListenerConfig{
		Network: "tcp",
		Address: "localhost:8970",
	}
}

func DefaultWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		DataDir:        DefaultDatadirRoot,
		ListenerConfig: DefaultWebListenerConfig(),
	}
}
