// Package student содержит доменную модель ученика клуба единоборств.
//
// Пакет определяет:
//
//   - Сущности: Student, PerformanceRecord, FeedbackRecord
//   - Машину состояний прогресса: начисление очков, полосы, готовность, повышение
//   - Интерфейсы: Repository, TextGenerator
//
// # Архитектурные принципы
//
//  1. Нулевые внешние зависимости - только стандартная библиотека Go
//  2. Dependency Inversion - интерфейсы реализуются в infrastructure
//  3. Rich Domain Model - бизнес-логика инкапсулирована в сущностях
//
// # Прогресс ученика
//
// Очки копятся на текущем поясе. Полосы всегда выводятся из очков:
//
//	stripes = floor(TotalPoints / policy.PointsRequired(BeltID))
//
// Этапы: Training → ReadyForGrading → (Promote) → Training следующего пояса.
// Готовность ставит тренер, и только когда полос достаточно:
//
//	res := s.Accrue(policy, SessionInput{Date: day, Scores: scores, Bonus: 5})
//	if s.CanToggleReadiness(policy) {
//	    _ = s.SetReadyForGrading(policy, true)
//	}
//	promo := s.Promote(ledger, time.Now())
//	if promo.Promoted {
//	    eventBus.Publish(shared.NewStudentPromotedEvent(s.ID, promo.From.ID, promo.To.ID, promo.At))
//	}
//
// Повышение на высшем поясе или без готовности ничего не меняет
// и возвращает PromotionResult с причиной пропуска.
package student
