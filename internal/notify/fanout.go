package notify

import "luckydraw/internal/models"

// ResultPublisher receives finished draw results.
type ResultPublisher interface {
	PublishResult(result *models.DrawResult)
}

// Fanout forwards each result to every publisher in order.
type Fanout []ResultPublisher

// PublishResult implements ResultPublisher.
func (f Fanout) PublishResult(result *models.DrawResult) {
	for _, p := range f {
		p.PublishResult(result)
	}
}
