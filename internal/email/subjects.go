package email

const (
	subjectMasterpieceCreating = "Your masterpiece is being created!"
	subjectMasterpieceReady    = "Your masterpiece is ready!"
	subjectOrderConfirmation   = "Order Confirmed: Your Pet Portrait"
	subjectOrderShippedFmt     = "Your order %s has shipped!"
	subjectAdminReviewFmt      = "[ADMIN] %s Review Required - %s"

	subjectUploadReminderFirst  = "Action Required: Upload Photos to Complete Your Order"
	subjectUploadReminderSecond = "Reminder: Complete Your Pet Portrait Order"
	subjectUploadReminderFinal  = "Final Notice: Complete Your Order"
)

func uploadReminderSubject(reminderNumber int) string {
	switch {
	case reminderNumber <= 1:
		return subjectUploadReminderFirst
	case reminderNumber == 2:
		return subjectUploadReminderSecond
	default:
		return subjectUploadReminderFinal
	}
}
