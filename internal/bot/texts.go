package bot

// Keyboard labels.
const (
	LabelRegister   = "Записаться на экзамен"
	LabelCancel     = "Отмена"
	LabelAdminMenu  = "Меню админа"
	LabelList       = "Список заявок"
	LabelSetExam    = "Назначить экзамен"
	LabelInviteAll  = "Разослать всем"
	LabelInviteByID = "Разослать по ID"
	LabelClear      = "Очистить список"
	LabelDeleteByID = "Удалить участников"
	LabelDownload   = "Скачать список"
)

// Inline button uniques.
const (
	CallbackList          = "cmd_list"
	CallbackSetExam       = "cmd_set_exam"
	CallbackInviteAll     = "cmd_invite_all"
	CallbackInviteByID    = "cmd_invite_by_id"
	CallbackClear         = "cmd_clear_list"
	CallbackDeleteByID    = "cmd_delete_by_id"
	CallbackDownload      = "cmd_download_list"
	CallbackClearConfirm  = "clear_confirm"
	CallbackClearCancel   = "clear_cancel"
	CallbackRemoveConfirm = "remove_invited_confirm"
	CallbackRemoveCancel  = "remove_invited_cancel"
	CallbackConfirm       = "confirm"
)

const (
	textGreeting      = "Привет! Я бот для регистрации на экзамен. Используйте кнопку \"Записаться на экзамен\" или введите /register для начала."
	textAdminPanel    = "Панель администратора."
	textAdminNoSubmit = "Профиль администратора не может отправлять заявки."
	textCancelled     = "Действие отменено."
	textAdminOnly     = "Команда доступна только администратору."
	textNoRights      = "Недостаточно прав."
	textAdminMenu     = "Меню админа:"
	textSubmitted     = "Спасибо, заявка принята. Когда списки будут готовы — получите уведомление."

	textListEmpty  = "Заявок пока нет."
	textListHeader = "Список заявок:\n"
	textExamSaved  = "Дата экзамена сохранена: %s"

	textExamNotSet      = "Дата экзамена не установлена."
	textNoRegistrations = "Не найдено ни одной регистрации."
	textInvitesSent     = "Приглашения отправлены:\n"
	textInvitesFailed   = "Не удалось разослать приглашения."
	textRemovePrompt    = "\n\nУдалить приглашённых участников?"
	textInviteStarted   = "Запускаю рассылку..."
	textRemoveInvited   = "Удалить приглашённых участников"
	textKeepInvited     = "Оставить"

	textDeleted        = "Удалены: "
	textNotFoundIDs    = "Не найдены: "
	textNothingDeleted = "Ничего не удалено."

	textClearPrompt    = "Вы уверены, что хотите удалить ВСЕ заявки? Действие необратимо."
	textClearConfirm   = "Подтвердить очистку"
	textClearDone      = "Список очищен."
	textClearDoneEdit  = "Список заявок успешно очищен."
	textClearFailed    = "Ошибка при очистке."
	textClearCancelled = "Отмена."
	textClearCancelMsg = "Очистка отменена."

	textNothingPending     = "Нет ожидающих удаления."
	textNothingPendingEdit = "Нет приглашённых участников, ожидающих удаления."
	textRemovedToast       = "Удалено %d заявок."
	textRemovedEdit        = "Удалено %d приглашённых заявок из списка."
	textRemoveCancelled    = "Отмена удаления."
	textRemoveCancelEdit   = "Удаление приглашённых участников отменено."
	textRemoveFailed       = "Ошибка при удалении."

	textExportStarted = "Формирую TXT со списком..."
	textExportFailed  = "Ошибка при формировании файла."

	textConfirmButton  = "Подтвердить получение"
	textConfirmMissing = "Заявка не найдена."
	textConfirmDenied  = "Подтвердить может только получатель."
	textConfirmEarly   = "Приглашение ещё не отправлено."
	textConfirmDone    = "Подтверждение получено."
	textConfirmFailed  = "Ошибка при сохранении."
	textExamUnknown    = "не назначена"
)
