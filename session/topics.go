package session

// Fixed MQTT topics, device perspective. All QoS 0, all payloads UTF-8
// line-format text.
const (
	topicInfo   = "dev/info"
	topicData   = "dev/data"
	topicCfg    = "dev/cfg"
	topicCfgUpd = "dev/cfg/upd"
	topicRsc    = "dev/rsc"
	topicRscUpd = "dev/rsc/upd"

	topicCmd    = "dev/cmd"
	topicCmdRes = "dev/cmd/res"

	topicRscUpdRes = "dev/rsc/upd/res"
)

// subscription table slot indices, fixed per spec.
const (
	subConfigUpdate = iota
	subCommand
	subResourceUpdate
	subCount
)
