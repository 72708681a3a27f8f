package realtime

import (
	"sync"
	"time"
)

// Poller таймер real-time режима. Один экземпляр = один PollingHandle:
// при смене интервала или entity старый останавливается и создаётся новый, повторно не используется.
type Poller struct {
	interval time.Duration
	tick     func(*Poller)

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// StartPoller запускает тикер. Первый тик — через interval: немедленную загрузку делает юнит.
func StartPoller(interval time.Duration, tick func(*Poller)) *Poller {
	p := &Poller{
		interval: interval,
		tick:     tick,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *Poller) loop() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			// stop мог прийти одновременно с тиком — select выбирает случайно, перепроверяем
			select {
			case <-p.stop:
				return
			default:
			}
			p.tick(p)
		}
	}
}

// Stop останавливает тикер и ждёт выхода горутины. Повторный вызов безопасен.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done
}

// Done закрывается, когда горутина таймера завершилась.
func (p *Poller) Done() <-chan struct{} { return p.done }

func (p *Poller) Interval() time.Duration { return p.interval }
