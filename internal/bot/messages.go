package bot

// User-facing texts
const (
	msgStart = "👋 AI-CEO онлайн. Напишите мне, и я предложу задачи или помогу вам!"

	msgAIError         = "Произошла ошибка при обращении к AI."
	msgStoreReadError  = "⚠️ Не удалось получить данные из таблицы. Попробуйте позже."
	msgStoreWriteError = "⚠️ Не удалось сохранить в таблицу. Попробуйте позже."
	msgUnknownCommand  = "Неизвестная команда. /help — список команд."

	msgTaskPrompt    = "📝 Похоже на задачу:\n«%s»\n\nДобавить в список задач?"
	msgTaskAdded     = "✅ Задача добавлена:\n«%s»"
	msgTaskRejected  = "❌ Задача не добавлена."
	msgTaskExpired   = "⌛ Предложение устарело. Напишите задачу ещё раз."
	msgTaskNotYours  = "Это предложение другого пользователя."
	msgTaskSaveRetry = "⚠️ Не удалось сохранить задачу «%s». Нажмите «Добавить» ещё раз чуть позже."
	msgUnknownAction = "Неизвестное действие."

	msgStatusUpdated = "%s → %s"
	msgTaskNotFound  = "Задача не найдена, возможно, таблица изменилась. Откройте список заново: /show_tasks"

	msgVoiceDisabled    = "Голосовые сообщения отключены."
	msgVoiceFailed      = "❌ Не удалось распознать голосовое сообщение."
	msgVoiceTranscript  = "🎙 %s"
	msgVoiceSaved       = "📌 Добавлено в задачи."
	msgVoiceSaveFailed  = "⚠️ Расшифровка не сохранена в задачи. Попробуйте позже."
	msgStrategyDisabled = "Стратегический план не подключён."

	msgNoProfile      = "Профиль компании пока пуст."
	msgWeekNotFound   = "На неделю %s стратегия не найдена."
	msgAskGoal        = "✏️ Какая цель на неделю %s? Напишите её следующим сообщением или /cancel."
	msgEmptyGoal      = "Цель не может быть пустой. Напишите цель или /cancel."
	msgGoalUpdated    = "✅ Цель недели %s обновлена:\n%s"
	msgGoalWeekAbsent = "Неделя %s не найдена в стратегическом плане, цель не изменена."

	msgNoTasks        = "📭 Задач со статусом «%s» нет."
	msgNoOpenTasks    = "📭 Открытых задач нет."
	msgTasksLoadError = "⚠️ Не удалось загрузить задачи. Попробуйте позже."

	msgCancelled     = "Отменено."
	msgNothingCancel = "Нечего отменять."
)
