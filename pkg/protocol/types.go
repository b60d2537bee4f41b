package protocol

// Type is the namespaced "<entity>:<action>" tag of an envelope.
type Type string

const (
	TypeError Type = "error"

	TypeCampaignState Type = "campaign:state"

	TypeSessionJoin         Type = "session:join"
	TypeSessionLeave        Type = "session:leave"
	TypeSessionPlayers      Type = "session:players"
	TypeSessionPlayerJoined Type = "session:player-joined"
	TypeSessionPlayerLeft   Type = "session:player-left"

	TypeSceneActivate  Type = "scene:activate"
	TypeSceneActivated Type = "scene:activated"

	TypeTokenAdd     Type = "token:add"
	TypeTokenAdded   Type = "token:added"
	TypeTokenMove    Type = "token:move"
	TypeTokenMoved   Type = "token:moved"
	TypeTokenUpdate  Type = "token:update"
	TypeTokenUpdated Type = "token:updated"
	TypeTokenRemove  Type = "token:remove"
	TypeTokenRemoved Type = "token:removed"

	TypeWallAdd     Type = "wall:add"
	TypeWallAdded   Type = "wall:added"
	TypeWallUpdate  Type = "wall:update"
	TypeWallUpdated Type = "wall:updated"
	TypeWallRemove  Type = "wall:remove"
	TypeWallRemoved Type = "wall:removed"
	TypeDoorToggle  Type = "door:toggle"
	TypeDoorToggled Type = "door:toggled"

	TypeChatSend    Type = "chat:send"
	TypeChatMessage Type = "chat:message"

	TypeDiceRoll   Type = "dice:roll"
	TypeDiceRolled Type = "dice:rolled"

	TypeCombatStart        Type = "combat:start"
	TypeCombatStarted      Type = "combat:started"
	TypeCombatEnd          Type = "combat:end"
	TypeCombatEnded        Type = "combat:ended"
	TypeCombatNextTurn     Type = "combat:next-turn"
	TypeCombatTurnAdvanced Type = "combat:turn-advanced"
	TypeCombatantAdd       Type = "combatant:add"
	TypeCombatantAdded     Type = "combatant:added"
	TypeCombatantRemove    Type = "combatant:remove"
	TypeCombatantRemoved   Type = "combatant:removed"

	TypeDrawStream    Type = "draw:stream"
	TypeDrawStreamed  Type = "draw:streamed"
	TypeRulerMeasure  Type = "ruler:measure"
	TypeRulerMeasured Type = "ruler:measured"
)
