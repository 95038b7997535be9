package node

import "time"

// Node - зарегистрированный edge-узел
type Node struct {
	ID        string
	KeyHash   string
	CreatedAt time.Time
}

// SharedNodeID - узел, прошедший проверку общим ключом из конфигурации
const SharedNodeID = "shared"
