// Package lifecycle задаёт единственную таблицу переходов жизненного цикла пожертвования.
//
// Хранилища строят условия своих условных обновлений из значений Edge
// (статус From в фильтре, статус To в изменении) и не используют литералы статусов напрямую.
package lifecycle

import "github.com/mmeshcher/foodrescue/internal/model"

// Edge описывает разрешённый переход между состояниями.
type Edge struct {
	Name string
	From model.Status
	To   model.Status
}

var (
	// Assign назначает волонтёра на доступное пожертвование.
	Assign = Edge{Name: "assign", From: model.StatusAvailable, To: model.StatusScheduled}
	// Cancel снимает назначение волонтёра.
	Cancel = Edge{Name: "cancel", From: model.StatusScheduled, To: model.StatusAvailable}
	// Pickup фиксирует передачу пожертвования волонтёру у поставщика.
	Pickup = Edge{Name: "pickup", From: model.StatusScheduled, To: model.StatusPickedUp}
	// Complete фиксирует доставку получателю.
	Complete = Edge{Name: "complete", From: model.StatusPickedUp, To: model.StatusCompleted}
	// Withdraw снимает невостребованное пожертвование с публикации.
	Withdraw = Edge{Name: "withdraw", From: model.StatusAvailable, To: model.StatusCancelled}
)

// Edges перечисляет все переходы. Других переходов не существует.
var Edges = []Edge{Assign, Cancel, Pickup, Complete, Withdraw}

// Initial: состояние только что созданного пожертвования.
const Initial = model.StatusAvailable

// Allows сообщает, что пожертвование в состоянии s может пройти по переходу e.
func (e Edge) Allows(s model.Status) bool {
	return s == e.From
}
